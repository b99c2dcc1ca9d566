package host

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jwulff/trustguard/internal/model"
	"github.com/jwulff/trustguard/internal/protocol"
)

// TestLiveBridgeConnection connects to a running host bridge and pulls the
// background state. Skipped if the bridge socket doesn't exist.
func TestLiveBridgeConnection(t *testing.T) {
	sockPath := SocketPath()
	if _, err := os.Stat(sockPath); os.IsNotExist(err) {
		t.Skip("host bridge not running (no socket at", sockPath, ")")
	}

	client, err := Dial(sockPath, 5*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()
	fmt.Println("Connected to host bridge")

	ctx := context.Background()

	msg, err := protocol.New(protocol.GetCurrentState, nil)
	if err != nil {
		t.Fatal(err)
	}
	reply, err := client.SendToRuntime(ctx, msg)
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	var cs model.CurrentState
	if err := protocol.DecodeReply(reply, &cs); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if err := cs.Validate(); err != nil {
		t.Fatalf("invalid state: %v", err)
	}
	fmt.Printf("State: monitoring=%s alerts=%d scores=%d\n",
		cs.Monitoring.State, len(cs.Alerts.Active), len(cs.TrustScore.History))

	tab, err := client.ActiveTab(ctx)
	switch {
	case errors.Is(err, ErrNoActiveTab):
		fmt.Println("Active tab: none")
	case err != nil:
		t.Fatalf("active tab: %v", err)
	default:
		fmt.Printf("Active tab: id=%d url=%q\n", tab.ID, tab.URL)
	}

	// Subscribe briefly, just verify the feed opens and closes cleanly.
	listenCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := client.Listen(listenCtx); err != nil && listenCtx.Err() == nil {
		t.Fatalf("listen: %v", err)
	}
	fmt.Println("Subscribe: ok")
}
