package push

import (
	"github.com/fluxorio/mtp/pkg/transactions"
)

// Frame types.
//
// Enter hooks run inside the transition, so a view that pushes on enter
// (FrameSnapshot) delivers its first frame before the FrameNavigated that
// confirms it.
const (
	FrameNavigate  = "navigate"
	FrameNavigated = "navigated"
	FrameError     = "error"
	FrameSnapshot  = "transactions-by-status"
)

// ClientFrame is a frame sent by the webapp. A navigate frame names the
// target by State or by URL.
type ClientFrame struct {
	Type  string `json:"type"`
	State string `json:"state,omitempty"`
	URL   string `json:"url,omitempty"`
}

// NavigatedFrame confirms the active view
type NavigatedFrame struct {
	Type  string `json:"type"`
	State string `json:"state"`
	URL   string `json:"url,omitempty"`
	Title string `json:"title,omitempty"`
}

// ErrorFrame reports a rejected frame or a failed navigation
type ErrorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SnapshotFrame carries transaction counts while the view is active
type SnapshotFrame struct {
	Type     string                `json:"type"`
	Snapshot transactions.Snapshot `json:"snapshot"`
}
