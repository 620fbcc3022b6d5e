package adbus

import "testing"

func TestReplyTableAddTake(t *testing.T) {
	tbl := newReplyTable()
	called := false
	tbl.add(1, 0, func(reply *Message, replyErr *RemoteError) { called = true })

	fn, ok := tbl.take(1)
	if !ok {
		t.Fatal("take(1) = false, want true")
	}
	fn(nil, nil)
	if !called {
		t.Fatal("handler was not invoked")
	}

	if _, ok := tbl.take(1); ok {
		t.Fatal("take(1) after first take: want false, got true")
	}
}

func TestReplyTableTakeMissing(t *testing.T) {
	tbl := newReplyTable()
	if _, ok := tbl.take(99); ok {
		t.Fatal("take of unregistered serial: want false, got true")
	}
}

func TestReplyTableRemove(t *testing.T) {
	tbl := newReplyTable()
	tbl.add(1, 0, func(reply *Message, replyErr *RemoteError) {})

	if !tbl.remove(1) {
		t.Fatal("remove(1) = false, want true")
	}
	if tbl.remove(1) {
		t.Fatal("remove(1) after already removed: want false, got true")
	}
	if _, ok := tbl.take(1); ok {
		t.Fatal("take(1) after remove: want false, got true")
	}
}

func TestReplyTableRemoveAll(t *testing.T) {
	tbl := newReplyTable()
	tbl.add(1, 10, func(reply *Message, replyErr *RemoteError) {})
	tbl.add(2, 10, func(reply *Message, replyErr *RemoteError) {})
	tbl.add(3, 20, func(reply *Message, replyErr *RemoteError) {})

	tbl.removeAll(10)

	if _, ok := tbl.take(1); ok {
		t.Error("serial 1 (owner 10) survived removeAll(10)")
	}
	if _, ok := tbl.take(2); ok {
		t.Error("serial 2 (owner 10) survived removeAll(10)")
	}
	if _, ok := tbl.take(3); !ok {
		t.Error("serial 3 (owner 20) was dropped by removeAll(10)")
	}
}
