package notify

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tkingovr/companybook/api"
)

func TestJournal_NotifyAndRecent(t *testing.T) {
	dir := t.TempDir()
	j, err := NewJournal(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	ctx := context.Background()
	for _, name := range []string{"Acme", "Bolt"} {
		n := &api.Notification{
			Title:   "New Company Added",
			Body:    "Company added: " + name,
			Company: &api.Company{ID: 1, Name: name},
		}
		if err := j.Notify(ctx, n); err != nil {
			t.Fatal(err)
		}
		if n.ID == "" {
			t.Error("expected generated ID")
		}
		if n.Timestamp.IsZero() {
			t.Error("expected timestamp")
		}
	}

	recent := j.Recent(10)
	if len(recent) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(recent))
	}
	if recent[0].Body != "Company added: Bolt" {
		t.Errorf("expected newest first, got %q", recent[0].Body)
	}

	if got := j.Recent(1); len(got) != 1 || got[0].Body != "Company added: Bolt" {
		t.Errorf("unexpected limited result %+v", got)
	}
	if got := j.Recent(0); len(got) != 2 {
		t.Errorf("expected all notifications for limit 0, got %d", len(got))
	}
}

func TestJournal_FileRotation(t *testing.T) {
	dir := t.TempDir()
	j, err := NewJournal(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	ctx := context.Background()
	day1 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)

	j.Notify(ctx, &api.Notification{Timestamp: day1, Title: "a"})
	j.Notify(ctx, &api.Notification{Timestamp: day2, Title: "b"})

	for _, name := range []string{"2024-01-01.jsonl", "2024-01-02.jsonl"} {
		if _, err := os.Stat(filepath.Join(dir, name)); os.IsNotExist(err) {
			t.Errorf("expected journal file %s", name)
		}
	}
}

func TestJournal_WritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	j, err := NewJournal(dir)
	if err != nil {
		t.Fatal(err)
	}

	ts := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	j.Notify(context.Background(), &api.Notification{ID: "n-1", Timestamp: ts, Title: "New Company Added", Body: "Company added: Acme"})
	j.Notify(context.Background(), &api.Notification{ID: "n-2", Timestamp: ts, Title: "New Company Added", Body: "Company added: Bolt"})
	if err := j.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(filepath.Join(dir, "2024-03-01.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var ids []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var n api.Notification
		if err := json.Unmarshal(sc.Bytes(), &n); err != nil {
			t.Fatalf("invalid line %q: %v", sc.Text(), err)
		}
		ids = append(ids, n.ID)
	}
	if len(ids) != 2 || ids[0] != "n-1" || ids[1] != "n-2" {
		t.Errorf("unexpected journal contents %v", ids)
	}
}

func TestJournal_BoundedMemory(t *testing.T) {
	j, err := NewJournal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	j.maxMem = 3

	for i := 0; i < 5; i++ {
		j.Notify(context.Background(), &api.Notification{Title: "n"})
	}
	if got := len(j.Recent(0)); got != 3 {
		t.Errorf("expected 3 notifications in memory, got %d", got)
	}
}

func TestJournal_Subscribe(t *testing.T) {
	j, err := NewJournal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	ctx := context.Background()
	ch, cancel := j.Subscribe(ctx)
	defer cancel()

	j.Notify(ctx, &api.Notification{Title: "New Company Added", Body: "Company added: Acme"})

	select {
	case n := <-ch:
		if n.Body != "Company added: Acme" {
			t.Errorf("expected Acme notification, got %q", n.Body)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func TestJournal_SubscribeEndsWithContext(t *testing.T) {
	j, err := NewJournal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	ctx, cancelCtx := context.WithCancel(context.Background())
	ch, cancel := j.Subscribe(ctx)
	cancelCtx()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("subscription not closed after context cancel")
	}
	cancel()
}
