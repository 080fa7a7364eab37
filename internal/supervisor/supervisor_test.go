// File: internal/supervisor/supervisor_test.go
// Project: Gargamel League Matchmaker
// Description: Tests for the lobby supervisor state machine
// Version: 1.0.0

package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/gargamel-league/matchmaker/internal/platform"
	"github.com/gargamel-league/matchmaker/internal/platform/fake"
)

func newTestSupervisor() (*Supervisor, *fake.Client, chan Event) {
	client := fake.New()
	out := make(chan Event, 16)
	sup := New(1, 0, client, nil, Config{}, out)
	return sup, client, out
}

func TestCreateLobby_WaitsForReadyThenCreates(t *testing.T) {
	sup, client, _ := newTestSupervisor()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()

	go func() {
		time.Sleep(10 * time.Millisecond)
		client.Emit(platform.Event{LoggedOn: &platform.LoggedOnEvent{}})
	}()

	if err := sup.CreateLobby(ctx, []int64{1, 2}, []int64{3, 4}, "pw"); err != nil {
		t.Fatalf("CreateLobby returned %v", err)
	}

	if client.LobbyConfig.Password != "pw" {
		t.Fatalf("expected password pw, got %q", client.LobbyConfig.Password)
	}
	if len(client.Invited) != 4 {
		t.Fatalf("expected 4 invites, got %d", len(client.Invited))
	}

	cancel()
	<-done
}

func TestSwap_RequiresOppositeTeams(t *testing.T) {
	sup, client, _ := newTestSupervisor()
	client.Emit(platform.Event{LoggedOn: &platform.LoggedOnEvent{}})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()

	if err := sup.CreateLobby(ctx, []int64{1, 2}, []int64{3, 4}, "pw"); err != nil {
		t.Fatalf("CreateLobby returned %v", err)
	}

	if err := sup.Swap(ctx, 1, 2); err == nil {
		t.Fatal("expected NotOpposingTeams error for same-team swap")
	}

	if err := sup.Swap(ctx, 1, 3); err != nil {
		t.Fatalf("expected swap across teams to succeed, got %v", err)
	}
	if !client.WasKicked(1) || !client.WasKicked(3) {
		t.Fatal("expected both swapped players to be kicked")
	}

	cancel()
	<-done
}

func TestReplace_RejectsPlayerAlreadyInRoster(t *testing.T) {
	sup, client, _ := newTestSupervisor()
	client.Emit(platform.Event{LoggedOn: &platform.LoggedOnEvent{}})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()

	if err := sup.CreateLobby(ctx, []int64{1, 2}, []int64{3, 4}, "pw"); err != nil {
		t.Fatalf("CreateLobby returned %v", err)
	}

	if err := sup.Replace(ctx, 1, 3); err == nil {
		t.Fatal("expected error replacing with a player already in roster")
	}
	if err := sup.Replace(ctx, 1, 5); err != nil {
		t.Fatalf("expected replace to succeed, got %v", err)
	}
	if !client.WasKicked(1) {
		t.Fatal("expected old player to be kicked")
	}

	cancel()
	<-done
}

func TestSeating_LaunchesOnceAllCorrect(t *testing.T) {
	sup, client, out := newTestSupervisor()
	client.Emit(platform.Event{LoggedOn: &platform.LoggedOnEvent{}})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()

	if err := sup.CreateLobby(ctx, []int64{1, 2}, []int64{3, 4}, "pw"); err != nil {
		t.Fatalf("CreateLobby returned %v", err)
	}

	client.Emit(platform.Event{LobbyChanged: &platform.LobbyChangedEvent{
		State: platform.LobbyStateUI,
		Members: []platform.Member{
			{SteamID: 1, Team: platform.TeamDire},
			{SteamID: 2, Team: platform.TeamRadiant},
			{SteamID: 3, Team: platform.TeamUnassigned},
			{SteamID: 4, Team: platform.TeamUnassigned},
		},
	}})

	time.Sleep(20 * time.Millisecond)
	if !client.WasKicked(1) {
		t.Fatal("expected player on the wrong side to be kicked")
	}
	if client.Launched {
		t.Fatal("should not launch while seats are still wrong")
	}

	client.Emit(platform.Event{LobbyChanged: &platform.LobbyChangedEvent{
		State: platform.LobbyStateUI,
		Members: []platform.Member{
			{SteamID: 1, Team: platform.TeamRadiant},
			{SteamID: 2, Team: platform.TeamRadiant},
			{SteamID: 3, Team: platform.TeamDire},
			{SteamID: 4, Team: platform.TeamDire},
		},
	}})

	time.Sleep(20 * time.Millisecond)
	if !client.Launched {
		t.Fatal("expected lobby to launch once every seat is correct")
	}

	client.Emit(platform.Event{LobbyChanged: &platform.LobbyChangedEvent{
		LobbyID: 99,
		State:   platform.LobbyStateRun,
		MatchID: 555,
	}})

	select {
	case ev := <-out:
		if ev.LobbyRunning == nil {
			t.Fatal("expected a lobby_running event")
		}
		if ev.LobbyRunning.MatchID != 555 {
			t.Fatalf("expected match id 555, got %d", ev.LobbyRunning.MatchID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for lobby_running event")
	}

	cancel()
	<-done
}

func TestHandleLobbyChanged_RequestsPersonaStateAndResolvesNames(t *testing.T) {
	sup, client, _ := newTestSupervisor()
	client.Emit(platform.Event{LoggedOn: &platform.LoggedOnEvent{}})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	if err := sup.CreateLobby(ctx, []int64{1, 2}, []int64{3, 4}, "pw"); err != nil {
		t.Fatalf("CreateLobby returned %v", err)
	}

	client.Emit(platform.Event{LobbyChanged: &platform.LobbyChangedEvent{
		State: platform.LobbyStateUI,
		Members: []platform.Member{
			{SteamID: 1, Team: platform.TeamRadiant},
			{SteamID: 2, Team: platform.TeamRadiant},
		},
	}})

	time.Sleep(20 * time.Millisecond)
	if len(client.PersonaRequests) == 0 {
		t.Fatal("expected a persona-state request on lobby_changed")
	}
	got := client.PersonaRequests[len(client.PersonaRequests)-1]
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("expected persona request for [1 2], got %v", got)
	}

	// A resolved persona_state must not disrupt the run loop: the
	// Supervisor keeps processing subsequent lobby_changed events fine.
	client.Emit(platform.Event{PersonaState: &platform.PersonaStateEvent{SteamID: 1, Name: "Alice"}})

	client.Emit(platform.Event{LobbyChanged: &platform.LobbyChangedEvent{
		State: platform.LobbyStateUI,
		Members: []platform.Member{
			{SteamID: 1, Team: platform.TeamRadiant},
			{SteamID: 2, Team: platform.TeamRadiant},
			{SteamID: 3, Team: platform.TeamDire},
			{SteamID: 4, Team: platform.TeamDire},
		},
	}})
	time.Sleep(20 * time.Millisecond)
	if !client.Launched {
		t.Fatal("expected lobby to launch once every seat is correct")
	}
}

func TestTeardown_IsIdempotent(t *testing.T) {
	sup, client, _ := newTestSupervisor()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()

	if err := sup.Teardown(ctx); err != nil {
		t.Fatalf("Teardown returned %v", err)
	}
	if !client.Left || !client.Disconnected {
		t.Fatal("expected teardown to leave the lobby and disconnect")
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Teardown")
	}
}
