package view

import (
	"bytes"
	"fmt"

	cmp "maragu.dev/gomponents"
	g "maragu.dev/gomponents/html"
	hx "maragu.dev/gomponents-htmx"

	"github.com/ecoh2o/portal/internal/realtime"
)

// NotificationToast renders one alert as an out-of-band fragment. The portal
// page holds a #toasts container; htmx swaps this fragment into its head, so
// the newest alert appears on top without a page reload.
func NotificationToast(alert realtime.NotificationAlert) cmp.Node {
	return g.Div(
		g.ID("toasts"),
		hx.SwapOOB("afterbegin"),
		g.Div(
			g.Class("toast toast-"+alert.Type),
			g.Data("record-id", alert.RecordID),
			g.Div(g.Class("toast-title"), cmp.Text(alert.Title)),
			g.P(g.Class("toast-message"), cmp.Text(alert.Message)),
		),
	)
}

// UnreadBadge renders the unread-notification counter fragment, swapped in
// place by id.
func UnreadBadge(count int) cmp.Node {
	return g.Span(
		g.ID("unread-badge"),
		hx.SwapOOB("true"),
		g.Class("unread-badge"),
		cmp.If(count > 0, cmp.Text(fmt.Sprintf("%d", count))),
	)
}

// RenderFragment renders a node to bytes for delivery over the stream.
func RenderFragment(node cmp.Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := node.Render(&buf); err != nil {
		return nil, fmt.Errorf("fragment render failed: %w", err)
	}
	return buf.Bytes(), nil
}
