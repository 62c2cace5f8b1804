package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"asyncnet/config"
	ncerr "asyncnet/internal/errors"
	"asyncnet/internal/sock"
	"asyncnet/util"
)

func openPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

func freePort(t *testing.T) int {
	t.Helper()
	port, err := util.FindFreePort()
	if err != nil {
		t.Fatal(err)
	}
	return port
}

// TestProbePorts_Order verifies results follow the input order and
// carry the failure category.
func TestProbePorts_Order(t *testing.T) {
	open1, closed, open2 := openPort(t), freePort(t), openPort(t)
	ports := []int{open1, closed, open2}

	results, err := ProbePorts(context.Background(), sock.NewConnector(nil),
		"127.0.0.1", ports, 2*time.Second, 2)
	if err != nil {
		t.Fatal(err)
	}

	if len(results) != len(ports) {
		t.Fatalf("got %d results", len(results))
	}
	for i, r := range results {
		if r.Port != ports[i] {
			t.Errorf("result %d is port %d, want %d", i, r.Port, ports[i])
		}
	}
	if !results[0].Open || !results[2].Open {
		t.Errorf("open ports reported closed: %+v", results)
	}
	if results[1].Open || results[1].Err == nil {
		t.Fatalf("closed port reported open: %+v", results[1])
	}
	if results[1].Outcome == ncerr.OutcomeConnected {
		t.Errorf("closed port outcome = %s", results[1].Outcome)
	}
}

type countingProber struct {
	inFlight, peak atomic.Int32
}

func (p *countingProber) Dial(host string, port int, _ time.Duration) (*sock.Channel, error) {
	n := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		old := p.peak.Load()
		if n <= old || p.peak.CompareAndSwap(old, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return nil, ncerr.Connect(ncerr.OutcomePoll, host, port, ncerr.ErrTimeout)
}

// TestProbePorts_Limit verifies no more than limit attempts overlap.
func TestProbePorts_Limit(t *testing.T) {
	p := &countingProber{}
	ports := make([]int, 40)
	for i := range ports {
		ports[i] = i + 1
	}

	results, err := ProbePorts(context.Background(), p, "h", ports, time.Second, 4)
	if err != nil {
		t.Fatal(err)
	}
	if peak := p.peak.Load(); peak > 4 {
		t.Errorf("peak concurrency = %d, want <= 4", peak)
	}
	for _, r := range results {
		if r.Outcome != ncerr.OutcomePoll {
			t.Fatalf("outcome = %s, want %s", r.Outcome, ncerr.OutcomePoll)
		}
	}
}

// TestProbePorts_Cancelled verifies a cancelled context is reported.
func TestProbePorts_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ProbePorts(ctx, &countingProber{}, "h", []int{1, 2, 3}, time.Second, 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

// TestProbeMode_Text verifies only open ports are printed.
func TestProbeMode_Text(t *testing.T) {
	open, closed := openPort(t), freePort(t)
	out := &bytes.Buffer{}

	mode := &ProbeMode{
		Prober:      sock.NewConnector(nil),
		Host:        "127.0.0.1",
		Ports:       []int{closed, open},
		Timeout:     2 * time.Second,
		Concurrency: 4,
		Format:      config.OutputText,
		Logger:      util.NewLogger(0),
		Output:      out,
	}
	if err := mode.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines:\n%s", len(lines), out.String())
	}
	want := fmt.Sprintf("127.0.0.1 %d/tcp open", open)
	if lines[0] != want {
		t.Errorf("line = %q, want %q", lines[0], want)
	}
}

// TestProbeMode_JSON verifies the JSON report lists every port.
func TestProbeMode_JSON(t *testing.T) {
	open, closed := openPort(t), freePort(t)
	out := &bytes.Buffer{}

	mode := &ProbeMode{
		Prober:      sock.NewConnector(nil),
		Host:        "127.0.0.1",
		Ports:       []int{open, closed},
		Timeout:     2 * time.Second,
		Concurrency: 4,
		Format:      config.OutputJSON,
		Logger:      util.NewLogger(0),
		Output:      out,
	}
	if err := mode.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	var doc struct {
		Host    string `json:"host"`
		Results []struct {
			Port    int    `json:"port"`
			Open    bool   `json:"open"`
			Outcome string `json:"outcome"`
			Error   string `json:"error"`
		} `json:"results"`
	}
	if err := json.Unmarshal(out.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON %q: %v", out.String(), err)
	}
	if doc.Host != "127.0.0.1" || len(doc.Results) != 2 {
		t.Fatalf("doc = %+v", doc)
	}
	if r := doc.Results[0]; r.Port != open || !r.Open || r.Outcome != "connected" || r.Error != "" {
		t.Errorf("open result = %+v", r)
	}
	if r := doc.Results[1]; r.Port != closed || r.Open || r.Error == "" {
		t.Errorf("closed result = %+v", r)
	}
}

// TestProbeMode_NoPorts verifies an empty port list is rejected.
func TestProbeMode_NoPorts(t *testing.T) {
	mode := &ProbeMode{Prober: &countingProber{}, Host: "h", Logger: util.NewLogger(0)}
	if err := mode.Run(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
}
