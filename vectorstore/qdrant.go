// Package vectorstore is the sole owner of all Qdrant operations. Each
// processed object gets its own collection, recreated from scratch on
// every ingestion run.
package vectorstore

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	apperrors "docqa/errors"
)

type Store struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
}

// New creates a Store connected to Qdrant at the given gRPC address.
func New(addr string) (*Store, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("vectorstore: dial qdrant %s: %w", addr, err)
	}
	return &Store{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
	}, nil
}

// Close closes the underlying gRPC connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// CollectionExists reports whether the named collection is present.
func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return false, storageErr("list collections", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == name {
			return true, nil
		}
	}
	return false, nil
}

// RecreateCollection drops the named collection if present and creates it
// empty, sized to the embedding dimensionality with cosine distance.
func (s *Store) RecreateCollection(ctx context.Context, name string, dims int) error {
	exists, err := s.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		if _, err := s.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: name}); err != nil {
			return storageErr(fmt.Sprintf("delete collection %s", name), err)
		}
	}

	d := uint64(dims)
	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: name,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     d,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return storageErr(fmt.Sprintf("create collection %s", name), err)
	}
	return nil
}

// Upsert stores the given points into the named collection.
func (s *Store) Upsert(ctx context.Context, name string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	pbPoints := make([]*pb.PointStruct, len(points))
	for i, p := range points {
		pbPoints[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: p.ID},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: p.Embedding},
				},
			},
			Payload: encodePayload(p.Payload),
		}
	}

	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: name,
		Wait:           &wait,
		Points:         pbPoints,
	})
	if err != nil {
		return storageErr(fmt.Sprintf("upsert %d points", len(points)), err)
	}
	return nil
}

// Search performs a top-K similarity search against the named collection,
// requesting payload and vector data for every hit.
func (s *Store) Search(ctx context.Context, name string, embedding []float32, topK int) ([]ScoredPoint, error) {
	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: name,
		Vector:         embedding,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		WithVectors:    &pb.WithVectorsSelector{SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, storageErr("search", err)
	}

	results := make([]ScoredPoint, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		results[i] = ScoredPoint{
			ID:        r.GetId().GetUuid(),
			Score:     r.GetScore(),
			Embedding: r.GetVectors().GetVector().GetData(),
			Payload:   decodePayload(r.GetPayload()),
		}
	}
	return results, nil
}

// RetrieveVectors fetches the embeddings for the given point ids in a
// single call. Ids absent from the collection are omitted from the map.
func (s *Store) RetrieveVectors(ctx context.Context, name string, ids []string) (map[string][]float32, error) {
	if len(ids) == 0 {
		return map[string][]float32{}, nil
	}

	pointIDs := make([]*pb.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: id}}
	}

	resp, err := s.points.Get(ctx, &pb.GetPoints{
		CollectionName: name,
		Ids:            pointIDs,
		WithVectors:    &pb.WithVectorsSelector{SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, storageErr(fmt.Sprintf("retrieve %d points", len(ids)), err)
	}

	vectors := make(map[string][]float32, len(resp.GetResult()))
	for _, r := range resp.GetResult() {
		vectors[r.GetId().GetUuid()] = r.GetVectors().GetVector().GetData()
	}
	return vectors, nil
}

func encodePayload(p Payload) map[string]*pb.Value {
	return map[string]*pb.Value{
		"object_id":      {Kind: &pb.Value_StringValue{StringValue: p.ObjectID}},
		"sentence_index": {Kind: &pb.Value_IntegerValue{IntegerValue: int64(p.SentenceIndex)}},
		"sentence_text":  {Kind: &pb.Value_StringValue{StringValue: p.SentenceText}},
		"title":          {Kind: &pb.Value_StringValue{StringValue: p.Title}},
		"author":         {Kind: &pb.Value_StringValue{StringValue: p.Author}},
	}
}

func decodePayload(fields map[string]*pb.Value) Payload {
	var p Payload
	for k, val := range fields {
		switch k {
		case "object_id":
			p.ObjectID = val.GetStringValue()
		case "sentence_index":
			p.SentenceIndex = int(val.GetIntegerValue())
		case "sentence_text":
			p.SentenceText = val.GetStringValue()
		case "title":
			p.Title = val.GetStringValue()
		case "author":
			p.Author = val.GetStringValue()
		}
	}
	return p
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: vectorstore: %s: %v", apperrors.ErrStorage, op, err)
}
