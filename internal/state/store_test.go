package state

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/five82/inkreader/internal/session"
)

func TestStore_UpdateAndSnapshotCopy(t *testing.T) {
	var s Store

	sess := session.Fresh()
	sess.CurrentPage = 2
	sess.PageCount = 5

	before := time.Now()
	s.Update(&sess, 3, nil)

	snap := s.Snapshot()
	if !snap.HasSession || snap.Session.CurrentPage != 2 || snap.Session.PageCount != 5 {
		t.Fatalf("snapshot session = %#v, want page 2 of 5", snap.Session)
	}
	if snap.CachedPages != 3 {
		t.Fatalf("CachedPages = %d, want 3", snap.CachedPages)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
	if snap.LastError != nil {
		t.Fatalf("LastError = %v, want nil", snap.LastError)
	}

	// The published value must not follow later writes to the owner's session.
	sess.CurrentPage = 4
	if got := s.Snapshot().Session.CurrentPage; got != 2 {
		t.Fatalf("snapshot followed owner mutation: page = %d, want 2", got)
	}
}

func TestStore_UpdateErrorKeepsPreviousData(t *testing.T) {
	var s Store

	sess := session.Fresh()
	sess.CurrentPage = 1
	sess.PageCount = 3
	s.Update(&sess, 1, nil)
	prev := s.Snapshot()

	before := time.Now()
	origErr := errors.New("boom")
	s.Update(nil, 0, origErr)

	snap := s.Snapshot()
	if snap.HasSession != prev.HasSession || snap.Session.CurrentPage != prev.Session.CurrentPage {
		t.Fatalf("session changed on error: got %#v want %#v", snap.Session, prev.Session)
	}
	if snap.CachedPages != 1 {
		t.Fatalf("CachedPages changed on error: got %d want 1", snap.CachedPages)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
	if snap.LastError == nil || snap.LastError.Error() != "boom" {
		t.Fatalf("LastError = %v, want boom", snap.LastError)
	}
	if reflect.ValueOf(snap.LastError).Pointer() == reflect.ValueOf(origErr).Pointer() {
		t.Fatalf("Snapshot should clone error instance")
	}
}

func TestStore_ConsecutiveFailures(t *testing.T) {
	var s Store

	snap := s.Snapshot()
	if snap.ConsecutiveFailures != 0 {
		t.Fatalf("ConsecutiveFailures = %d, want 0", snap.ConsecutiveFailures)
	}
	if snap.IsOffline() {
		t.Fatal("IsOffline() = true, want false with no data and 0 failures")
	}

	sess := session.Fresh()
	sess.Connectivity.ChannelLinkUp = true
	s.Update(&sess, 0, nil)

	s.Update(nil, 0, errors.New("fail 1"))
	snap = s.Snapshot()
	if snap.ConsecutiveFailures != 1 {
		t.Fatalf("ConsecutiveFailures = %d, want 1", snap.ConsecutiveFailures)
	}
	if snap.IsOffline() {
		t.Fatal("IsOffline() = true, want false with 1 failure")
	}

	s.Update(nil, 0, errors.New("fail 2"))
	snap = s.Snapshot()
	if !snap.IsOffline() {
		t.Fatal("IsOffline() = false, want true with 2 failures")
	}

	s.Update(&sess, 0, nil)
	snap = s.Snapshot()
	if snap.ConsecutiveFailures != 0 {
		t.Fatalf("ConsecutiveFailures = %d, want 0 after success", snap.ConsecutiveFailures)
	}
	if snap.IsOffline() {
		t.Fatal("IsOffline() = true, want false after success")
	}
}

func TestSnapshot_OfflineWhenChannelDown(t *testing.T) {
	var s Store
	sess := session.Fresh()
	s.Update(&sess, 0, nil)
	if !s.Snapshot().IsOffline() {
		t.Fatal("IsOffline() = false, want true with channel link down")
	}
}

func TestSnapshotViewFlattensSession(t *testing.T) {
	store := &Store{}
	if v := store.Snapshot().View(); v.CurrentPage != -1 || v.PageCount != -1 || v.QueueIndex != -1 {
		t.Fatalf("empty view = %+v, want unset indices", v)
	}

	sess := session.Fresh()
	sess.CurrentPage = 2
	sess.PageCount = 9
	sess.QueueIndex = 1
	sess.Connectivity.ChannelLinkUp = true
	sess.Connectivity.ChannelRegistered = true
	store.Update(&sess, 4, nil)

	v := store.Snapshot().View()
	if v.CurrentPage != 2 || v.PageCount != 9 || v.CachedPages != 4 || v.QueueIndex != 1 {
		t.Fatalf("view = %+v", v)
	}
	if !v.ChannelRegistered || v.Offline {
		t.Fatalf("view connectivity = %+v", v)
	}

	store.Update(nil, 0, errors.New("save failed"))
	if v := store.Snapshot().View(); v.LastError != "save failed" || v.ConsecutiveFailures != 1 {
		t.Fatalf("view after error = %+v", v)
	}
}
