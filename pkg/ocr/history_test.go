package ocr

import (
	"bytes"
	"testing"
)

func TestHistoryAppend(t *testing.T) {
	h := &History{}
	if h.Len() != 0 || len(h.List()) != 0 {
		t.Fatal("expected empty history")
	}

	inputs := []Entry{
		{Image: []byte("img-1"), Text: "first"},
		{Image: []byte("img-2"), Text: "दूसरा"},
		{Image: []byte("img-2"), Text: "दूसरा"},
	}
	for i, in := range inputs {
		before := len(h.List())
		h.Append(in.Image, in.Text)
		list := h.List()
		if len(list) != before+1 {
			t.Fatalf("append %d: length %d, want %d", i, len(list), before+1)
		}
		last := list[len(list)-1]
		if last.Text != in.Text || !bytes.Equal(last.Image, in.Image) {
			t.Errorf("append %d: last entry = %+v, want %+v", i, last, in)
		}
	}

	list := h.List()
	for i, in := range inputs {
		if list[i].Text != in.Text {
			t.Errorf("entry %d out of order: %q", i, list[i].Text)
		}
	}
}

func TestHistoryListIsSnapshot(t *testing.T) {
	h := &History{}
	h.Append([]byte("a"), "a")
	snapshot := h.List()
	snapshot[0].Text = "mutated"
	h.Append([]byte("b"), "b")

	if h.List()[0].Text != "a" {
		t.Error("mutating a snapshot changed the history")
	}
	if len(snapshot) != 1 {
		t.Error("snapshot grew after a later append")
	}
}
