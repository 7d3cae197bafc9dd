// Package codec wraps the gRPC connection to the Python collaborator
// service. The protocol is a Struct envelope: both sides exchange
// google.protobuf.Struct payloads, mirroring the dict-based handlers on the
// Python side, so the schema can evolve without regenerating stubs.
package codec

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/exploration-engine/internal/collab"
)

// RPC method names on the collaborator service.
const (
	methodGenerate        = "/explore.Collaborator/Generate"
	methodSearch          = "/explore.Collaborator/Search"
	methodStoreFinding    = "/explore.Collaborator/StoreFinding"
	methodRecommendations = "/explore.Collaborator/ProviderRecommendations"
	methodProfile         = "/explore.Collaborator/ProviderProfile"
	methodGoalStats       = "/explore.Collaborator/GoalStatistics"
)

// #region client-struct

// invoker is the slice of grpc.ClientConn the client needs; tests inject a
// fake.
type invoker interface {
	Invoke(ctx context.Context, method string, args, reply any, opts ...grpc.CallOption) error
}

// Client talks to the collaborator service. It implements collab.Generator,
// collab.VectorStore and collab.KnowledgeStore.
type Client struct {
	conn *grpc.ClientConn
	inv  invoker
}

// #endregion client-struct

// #region constructor

// New connects to the collaborator gRPC server.
func New(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, inv: conn}, nil
}

// newWithInvoker creates a Client over an injected transport. Used for
// testing without a real gRPC connection.
func newWithInvoker(inv invoker) *Client {
	return &Client{inv: inv}
}

// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion constructor

// #region call

// call invokes one RPC with a Struct request and returns the Struct reply.
func (c *Client) call(ctx context.Context, method string, fields map[string]any) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}
	reply := &structpb.Struct{}
	if err := c.inv.Invoke(ctx, method, req, reply); err != nil {
		return nil, fmt.Errorf("rpc %s: %w", method, err)
	}
	return reply, nil
}

// #endregion call

// #region generate

// Generate sends a prompt to the generation backend.
func (c *Client) Generate(ctx context.Context, req collab.GenerateRequest) (string, error) {
	reply, err := c.call(ctx, methodGenerate, map[string]any{
		"prompt":     req.Prompt,
		"provider":   req.Provider,
		"task_type":  req.TaskType,
		"session_id": req.SessionID,
	})
	if err != nil {
		return "", err
	}
	return stringField(reply, "text"), nil
}

// #endregion generate

// #region vector-store

// Search queries the vector store for the k nearest documents.
func (c *Client) Search(ctx context.Context, query string, k int) ([]collab.Document, error) {
	reply, err := c.call(ctx, methodSearch, map[string]any{
		"query": query,
		"top_k": k,
	})
	if err != nil {
		return nil, err
	}

	var docs []collab.Document
	for _, v := range listField(reply, "results") {
		s := v.GetStructValue()
		if s == nil {
			continue
		}
		doc := collab.Document{
			Content:    stringField(s, "content"),
			Similarity: numberField(s, "similarity"),
			Metadata:   map[string]string{},
		}
		if meta := s.Fields["metadata"].GetStructValue(); meta != nil {
			for key, val := range meta.Fields {
				doc.Metadata[key] = val.GetStringValue()
			}
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Add stores one finding document with metadata.
func (c *Client) Add(ctx context.Context, text string, metadata map[string]string) error {
	meta := make(map[string]any, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}
	_, err := c.call(ctx, methodStoreFinding, map[string]any{
		"text":     text,
		"metadata": meta,
	})
	return err
}

// #endregion vector-store

// #region knowledge-store

// ProviderRecommendations returns providers ranked for a task type.
func (c *Client) ProviderRecommendations(ctx context.Context, taskType string) ([]string, error) {
	reply, err := c.call(ctx, methodRecommendations, map[string]any{
		"task_type": taskType,
	})
	if err != nil {
		return nil, err
	}

	var providers []string
	for _, v := range listField(reply, "providers") {
		if s := v.GetStringValue(); s != "" {
			providers = append(providers, s)
		}
	}
	return providers, nil
}

// ProviderProfile returns one provider's observed task history.
func (c *Client) ProviderProfile(ctx context.Context, id string) (collab.ProviderProfile, error) {
	reply, err := c.call(ctx, methodProfile, map[string]any{"id": id})
	if err != nil {
		return collab.ProviderProfile{}, err
	}

	profile := collab.ProviderProfile{
		ID:      stringField(reply, "id"),
		Metrics: map[string]float64{},
	}
	for _, v := range listField(reply, "task_history") {
		if s := v.GetStringValue(); s != "" {
			profile.TaskHistory = append(profile.TaskHistory, s)
		}
	}
	if metrics := reply.Fields["metrics"].GetStructValue(); metrics != nil {
		for key, val := range metrics.Fields {
			profile.Metrics[key] = val.GetNumberValue()
		}
	}
	return profile, nil
}

// GoalStatistics returns per-goal success rates and attempt counts.
func (c *Client) GoalStatistics(ctx context.Context) (map[string]collab.GoalStats, error) {
	reply, err := c.call(ctx, methodGoalStats, map[string]any{})
	if err != nil {
		return nil, err
	}

	out := make(map[string]collab.GoalStats)
	goals := reply.Fields["goals"].GetStructValue()
	if goals == nil {
		return out, nil
	}
	for goal, v := range goals.Fields {
		s := v.GetStructValue()
		if s == nil {
			continue
		}
		out[goal] = collab.GoalStats{
			SuccessRate: numberField(s, "success_rate"),
			Attempts:    int(numberField(s, "attempts")),
		}
	}
	return out, nil
}

// #endregion knowledge-store

// #region field-helpers

func stringField(s *structpb.Struct, key string) string {
	if s == nil {
		return ""
	}
	return s.Fields[key].GetStringValue()
}

func numberField(s *structpb.Struct, key string) float64 {
	if s == nil {
		return 0
	}
	return s.Fields[key].GetNumberValue()
}

func listField(s *structpb.Struct, key string) []*structpb.Value {
	if s == nil {
		return nil
	}
	return s.Fields[key].GetListValue().GetValues()
}

// #endregion field-helpers
