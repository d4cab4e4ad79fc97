package agent

import "fmt"

// WebhookPayload is the documented wire contract for POST
// /agents/{id}/webhook, per spec.md §3's resolution of the webhook
// ambiguity: this is the one accepted shape regardless of trigger source.
type WebhookPayload struct {
	WalletAddress    string   `json:"wallet_address"`
	DetectiveSubset  []string `json:"detective_subset"`
	Depth            Depth    `json:"depth"`
	PatternCacheSize int      `json:"pattern_cache_size"`
}

// HandleWebhook gates and enqueues one task per external call. Returns the
// new task id, or an error: ErrStopped for a stopped agent, an
// AGENT_NOT_READY error for a created or paused one, an INVALID_INPUT error
// for an empty wallet address, or the queue-full error from Enqueue. When
// the gate rejects, dropped is true and reason carries the gate's reason.
func (a *Agent) HandleWebhook(p WebhookPayload) (taskID string, dropped bool, reason string, err error) {
	state := a.State()
	if state == StateStopped {
		return "", false, "", ErrStopped
	}
	if state != StateRunning {
		return "", false, "", fmt.Errorf("AGENT_NOT_READY")
	}
	if p.WalletAddress == "" {
		return "", false, "", fmt.Errorf("INVALID_INPUT: wallet_address required")
	}

	ok, gateReason := a.ShouldTriggerInvestigation(p.WalletAddress, p.PatternCacheSize)
	if !ok {
		a.appendLog("webhook trigger dropped for %s: %s", p.WalletAddress, gateReason)
		return "", true, gateReason, nil
	}

	task := NewTask(newID(), a.ID, p.WalletAddress, p.DetectiveSubset, p.Depth, TriggerWebhook)
	if err := a.Enqueue(task); err != nil {
		return "", false, "", err
	}
	return task.ID, false, "", nil
}
