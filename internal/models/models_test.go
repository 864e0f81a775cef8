package models

import "testing"

func TestExchangeStatus_Transitions(t *testing.T) {
	tests := []struct {
		status      ExchangeStatus
		canAccept   bool
		canComplete bool
		canReject   bool
		canCancel   bool
		terminal    bool
	}{
		{ExchangePending, true, false, true, true, false},
		{ExchangeAccepted, false, true, true, true, false},
		{ExchangeRejected, false, false, false, false, true},
		{ExchangeCompleted, false, false, false, false, true},
		{ExchangeCancelled, false, false, false, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.CanBeAccepted(); got != tt.canAccept {
				t.Errorf("CanBeAccepted() = %v, want %v", got, tt.canAccept)
			}
			if got := tt.status.CanBeCompleted(); got != tt.canComplete {
				t.Errorf("CanBeCompleted() = %v, want %v", got, tt.canComplete)
			}
			if got := tt.status.CanBeRejected(); got != tt.canReject {
				t.Errorf("CanBeRejected() = %v, want %v", got, tt.canReject)
			}
			if got := tt.status.CanBeCancelled(); got != tt.canCancel {
				t.Errorf("CanBeCancelled() = %v, want %v", got, tt.canCancel)
			}
			if got := tt.status.Terminal(); got != tt.terminal {
				t.Errorf("Terminal() = %v, want %v", got, tt.terminal)
			}
		})
	}
}

func TestExchangeStatus_NoTransitionOutOfTerminal(t *testing.T) {
	for _, status := range []ExchangeStatus{ExchangeRejected, ExchangeCompleted, ExchangeCancelled} {
		if status.CanBeAccepted() || status.CanBeCompleted() || status.CanBeRejected() || status.CanBeCancelled() {
			t.Errorf("terminal status %s permits a transition", status)
		}
	}
}
