package inspect

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/osawyer/domscope/connectivity"
	"github.com/osawyer/domscope/inspect/capture"
)

// RegisterConnectivity registers the inspector's action handlers on a
// connectivity Router.
//
// Registered actions:
//
//	analyze_dom              — one-shot element extraction
//	continuous_analysis      — start tracking and the capture loop
//	stop_continuous_analysis — stop tracking
//	capture_context          — build one aggregated context now
//	highlight_element        — outline an element by CSS selector
//	remove_highlight         — restore highlighted elements
//	get_current_chat_id      — active chat ID
//	record_interaction       — feed a user interaction
//	record_validation        — feed a form-validation result
func (i *Inspector) RegisterConnectivity(router *connectivity.Router) {
	router.Register("analyze_dom", i.handleAnalyzeDOM)
	router.Register("continuous_analysis", i.handleContinuousAnalysis)
	router.Register("stop_continuous_analysis", i.handleStopContinuousAnalysis)
	router.Register("capture_context", i.handleCaptureContext)
	router.Register("highlight_element", i.handleHighlight)
	router.Register("remove_highlight", i.handleRemoveHighlight)
	router.Register("get_current_chat_id", i.handleChatID)
	router.Register("record_interaction", i.handleRecordInteraction)
	router.Register("record_validation", i.handleRecordValidation)
}

func (i *Inspector) handleAnalyzeDOM(_ context.Context, _ []byte) ([]byte, error) {
	elements := i.AnalyzeDOM()
	return json.Marshal(map[string]any{
		"success":  true,
		"count":    len(elements),
		"elements": elements,
	})
}

func (i *Inspector) handleContinuousAnalysis(ctx context.Context, _ []byte) ([]byte, error) {
	// The action's context ends with the request; tracking must outlive it.
	i.StartTracking(context.WithoutCancel(ctx))
	return json.Marshal(map[string]bool{"success": true})
}

func (i *Inspector) handleStopContinuousAnalysis(_ context.Context, _ []byte) ([]byte, error) {
	i.StopTracking()
	return json.Marshal(map[string]bool{"success": true})
}

func (i *Inspector) handleCaptureContext(ctx context.Context, _ []byte) ([]byte, error) {
	c, err := i.CaptureContext(ctx)
	if err != nil {
		return nil, err
	}
	return capture.MarshalContext(&c)
}

func (i *Inspector) handleHighlight(_ context.Context, payload []byte) ([]byte, error) {
	var req struct {
		Selector string `json:"selector"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if req.Selector == "" {
		return nil, fmt.Errorf("highlight: selector required")
	}
	if err := i.HighlightElement(req.Selector); err != nil {
		return nil, err
	}
	return json.Marshal(map[string]bool{"success": true})
}

func (i *Inspector) handleRemoveHighlight(_ context.Context, payload []byte) ([]byte, error) {
	var req struct {
		Selector string `json:"selector"`
	}
	_ = json.Unmarshal(payload, &req) // OK if empty: removes all highlights

	if err := i.RemoveHighlight(req.Selector); err != nil {
		return nil, err
	}
	return json.Marshal(map[string]bool{"success": true})
}

func (i *Inspector) handleChatID(ctx context.Context, _ []byte) ([]byte, error) {
	return json.Marshal(map[string]string{"chat_id": i.ChatID(ctx)})
}

func (i *Inspector) handleRecordInteraction(_ context.Context, payload []byte) ([]byte, error) {
	var iv capture.Interaction
	if err := json.Unmarshal(payload, &iv); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if iv.Timestamp == 0 {
		iv.Timestamp = time.Now().UnixMilli()
	}
	i.RecordInteraction(iv)
	return json.Marshal(map[string]bool{"success": true})
}

func (i *Inspector) handleRecordValidation(_ context.Context, payload []byte) ([]byte, error) {
	var v capture.Validation
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if v.Timestamp == 0 {
		v.Timestamp = time.Now().UnixMilli()
	}
	i.RecordValidation(v)
	return json.Marshal(map[string]bool{"success": true})
}
