// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"beatsync/pkg/utils"
)

type sample struct {
	Rate  float64 `json:"rate"`
	Drift float64 `json:"drift"`
}

func TestWebSocketBroadcast(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer wst.Close()

	url := "ws://" + wst.Addr().String() + TelemetryPath
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	defer conn.Close()

	if !utils.Eventually(time.Second, func() bool { return wst.Clients() == 1 }) {
		t.Fatal("client never registered")
	}

	if err := wst.Send(sample{Rate: 1.05, Drift: -0.01}); err != nil {
		t.Fatal(err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got sample
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Rate != 1.05 || got.Drift != -0.01 {
		t.Errorf("received %+v", got)
	}
}

func TestWebSocketClientDisconnect(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer wst.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+wst.Addr().String()+TelemetryPath, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !utils.Eventually(time.Second, func() bool { return wst.Clients() == 1 }) {
		t.Fatal("client never registered")
	}
	conn.Close()
	if !utils.Eventually(2*time.Second, func() bool { return wst.Clients() == 0 }) {
		t.Error("client not removed after disconnect")
	}
}

func TestWebSocketSendAfterClose(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	if err := wst.Close(); err != nil {
		t.Fatal(err)
	}
	if err := wst.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := wst.Send(sample{}); err == nil {
		t.Error("Send after Close succeeded")
	}
}

func TestMultiFansOut(t *testing.T) {
	a, b := &utils.MockTransport{}, &utils.MockTransport{}
	b.Err = errors.New("b is down")
	m := Multi{a, b, NewLoggingTransport()}

	if err := m.Send(sample{Rate: 1}); err == nil {
		t.Error("Multi swallowed an error")
	}
	if len(a.Sent()) != 1 {
		t.Error("first transport skipped")
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if !a.Closed() || !b.Closed() {
		t.Error("Close not propagated")
	}
}
