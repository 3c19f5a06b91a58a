package progress

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Event is the JSON payload published for a progress tick.
type Event struct {
	TaskID  string `json:"task_id"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Name    string `json:"name,omitempty"`
}

// Notice is the JSON payload published for updates and warnings.
type Notice struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}

// NATSReporter publishes task progress onto per-task NATS subjects.
// Publish failures are logged at debug and otherwise ignored; the
// channel is advisory.
type NATSReporter struct {
	nc     *nats.Conn
	taskID string
	logger *zap.Logger
}

func NewNATSReporter(nc *nats.Conn, taskID string, logger *zap.Logger) *NATSReporter {
	return &NATSReporter{nc: nc, taskID: taskID, logger: logger}
}

func (r *NATSReporter) Progress(current, total int, name string) {
	r.publish("docqa.progress."+r.taskID, Event{TaskID: r.taskID, Current: current, Total: total, Name: name})
}

func (r *NATSReporter) Update(message string) {
	r.publish("docqa.update."+r.taskID, Notice{TaskID: r.taskID, Message: message})
}

func (r *NATSReporter) Warning(message string) {
	r.publish("docqa.warning."+r.taskID, Notice{TaskID: r.taskID, Message: message})
}

func (r *NATSReporter) publish(subject string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := r.nc.Publish(subject, data); err != nil && r.logger != nil {
		r.logger.Debug("Progress publish failed", zap.String("subject", subject), zap.Error(err))
	}
}
