package provider

import (
	"context"
	"testing"
)

// mockProvider is the simplest possible Provider implementation, standing
// in for the HTTP/CLI backends that are out of scope for the core.
type mockProvider struct {
	response *Response
	err      error
}

func (m *mockProvider) Process(ctx context.Context, prompt string, history []string, tools []Tool) (*Response, error) {
	return m.response, m.err
}

func TestMockProviderSatisfiesInterface(t *testing.T) {
	var p Provider = &mockProvider{response: &Response{Text: "done", Finish: FinishReason{Kind: FinishStop}}}
	resp, err := p.Process(context.Background(), "hello", nil, nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if resp.Text != "done" || resp.Finish.Kind != FinishStop {
		t.Errorf("resp = %+v, want Text=done Finish=Stop", resp)
	}
}
