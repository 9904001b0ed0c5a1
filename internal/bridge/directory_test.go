package bridge

import (
	"sync"
	"testing"
)

func testSnapshot() Snapshot {
	return Snapshot{
		SlackChannels: []SlackChannel{
			{Name: "dev", TeamID: "T1", ChannelID: "C1", WebhookURL: "https://hooks.slack.example/dev"},
			{Name: "ops", TeamID: "T1", ChannelID: "C2", WebhookURL: "https://hooks.slack.example/ops"},
		},
		LineChannels: []LineChannel{
			{Name: "group", ID: "Gaaa"},
			{Name: "room", ID: "Rbbb"},
		},
		Bridges: []Bridge{
			{Slack: "dev", Line: "group"},
			{Slack: "ops", Line: "group"},
			{Slack: "dev", Line: "room"},
		},
	}
}

func TestDirectoryLookups(t *testing.T) {
	d := NewDirectory(testSnapshot())

	ch, ok := d.SlackChannelByID("T1", "C1")
	if !ok || ch.Name != "dev" {
		t.Fatalf("unexpected slack channel lookup: %+v ok=%v", ch, ok)
	}
	if _, ok := d.SlackChannelByID("T1", "C9"); ok {
		t.Fatal("expected miss for unknown channel id")
	}
	if _, ok := d.SlackChannelByID("T2", "C1"); ok {
		t.Fatal("team id must participate in the match")
	}

	lc, ok := d.LineChannelByID("Gaaa")
	if !ok || lc.Name != "group" {
		t.Fatalf("unexpected line channel lookup: %+v ok=%v", lc, ok)
	}
	if _, ok := d.LineChannelByName("nope"); ok {
		t.Fatal("expected miss for unknown line name")
	}
}

func TestDirectoryBridgeFanOut(t *testing.T) {
	d := NewDirectory(testSnapshot())

	devBridges := d.BridgesForSlack("dev")
	if len(devBridges) != 2 {
		t.Fatalf("expected 2 bridges for dev, got %d", len(devBridges))
	}
	if devBridges[0].Line != "group" || devBridges[1].Line != "room" {
		t.Fatalf("bridge order not preserved: %+v", devBridges)
	}

	groupBridges := d.BridgesForLine("group")
	if len(groupBridges) != 2 {
		t.Fatalf("expected 2 bridges for group, got %d", len(groupBridges))
	}

	if got := d.BridgesForSlack("unbridged"); len(got) != 0 {
		t.Fatalf("expected no bridges, got %+v", got)
	}
}

func TestDirectoryReloadSwapsWholeSnapshot(t *testing.T) {
	d := NewDirectory(testSnapshot())

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			// A reader must see either zero or two bridges for "dev",
			// never an intermediate count.
			n := len(d.BridgesForSlack("dev"))
			if n != 0 && n != 2 {
				t.Errorf("partial snapshot observed: %d bridges", n)
				return
			}
		}
	}()

	for i := 0; i < 100; i++ {
		d.Reload(Snapshot{})
		d.Reload(testSnapshot())
	}
	close(stop)
	wg.Wait()

	if _, ok := d.SlackChannelByName("dev"); !ok {
		t.Fatal("final snapshot missing dev channel")
	}
}
