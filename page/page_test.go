package page_test

import (
	"testing"

	"github.com/kylelemons/godebug/pretty"
	"github.com/pganalyze/pgbloat/page"
)

type tidOrderTestpair struct {
	a, b     page.TID
	expected int
}

var tidOrderTests = []tidOrderTestpair{
	{page.TID{Block: 0, Offset: 1}, page.TID{Block: 0, Offset: 1}, 0},
	{page.TID{Block: 0, Offset: 1}, page.TID{Block: 0, Offset: 2}, -1},
	{page.TID{Block: 1, Offset: 1}, page.TID{Block: 0, Offset: 291}, 1},
	{page.TID{Block: 7, Offset: 65535}, page.TID{Block: 8, Offset: 1}, -1},
	{page.TID{Block: 0xFFFFFFFE, Offset: 3}, page.TID{Block: 0xFFFFFFFE, Offset: 2}, 1},
}

func TestTIDOrdering(t *testing.T) {
	for _, pair := range tidOrderTests {
		if got := pair.a.Compare(pair.b); got != pair.expected {
			t.Errorf("%s.Compare(%s): want %d; got %d", pair.a, pair.b, pair.expected, got)
		}

		var encoded int
		switch ea, eb := pair.a.Encode(), pair.b.Encode(); {
		case ea < eb:
			encoded = -1
		case ea > eb:
			encoded = 1
		}
		if encoded != pair.expected {
			t.Errorf("encoded order of %s and %s: want %d; got %d", pair.a, pair.b, pair.expected, encoded)
		}
	}
}

func TestItemIDPacking(t *testing.T) {
	id := page.MakeItemID(8000, page.LPDead, 192)
	if id.Offset() != 8000 || id.Flags() != page.LPDead || id.Length() != 192 {
		t.Errorf("want (8000, dead, 192); got (%d, %s, %d)", id.Offset(), id.Flags(), id.Length())
	}
	if !id.IsDead() || id.IsNormal() {
		t.Errorf("want dead and not normal for %s line pointer", id.Flags())
	}
	if page.MakeItemID(0, page.LPNormal, 0).IsNormal() {
		t.Errorf("want normal line pointer without storage to not be readable")
	}
}

func TestHeapPageDecode(t *testing.T) {
	b := page.NewHeapPageBuilder()
	want := page.HeapTupleHeader{
		Xmin:     100,
		Xmax:     101,
		Ctid:     page.TID{Block: 3, Offset: 9},
		Infomask: page.HeapXminCommitted | page.HeapUpdated,
	}
	off := b.AddItem(page.HeapTupleBytes(want, []byte("payload")))
	b.AddLinePointer(page.MakeItemID(0, page.LPUnused, 0))

	p, err := page.New(b.Bytes())
	if err != nil {
		t.Fatalf("want nil; got %s", err)
	}
	if p.MaxOffsetNumber() != 2 {
		t.Errorf("want max offset 2; got %d", p.MaxOffsetNumber())
	}
	if _, ok := p.ItemID(3); ok {
		t.Errorf("want offset 3 out of range")
	}

	id, ok := p.ItemID(off)
	if !ok || !id.IsNormal() {
		t.Fatalf("want normal line pointer at %d; got %s", off, id.Flags())
	}
	item, err := p.Item(id)
	if err != nil {
		t.Fatalf("want nil; got %s", err)
	}
	got, err := page.DecodeHeapTupleHeader(item)
	if err != nil {
		t.Fatalf("want nil; got %s", err)
	}
	want.Hoff = 24
	if diff := pretty.Compare(want, got); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
}

func TestNewPageRejectsShortBuffer(t *testing.T) {
	if _, err := page.New(make([]byte, 4096)); err == nil {
		t.Errorf("want error for 4096 byte page; got nil")
	}
}

func TestItemOutOfBounds(t *testing.T) {
	p, _ := page.New(page.NewHeapPageBuilder().Bytes())
	if _, err := p.Item(page.MakeItemID(8190, page.LPNormal, 64)); err == nil {
		t.Errorf("want error for item past end of page; got nil")
	}
	if _, err := p.Item(page.MakeItemID(4, page.LPNormal, 16)); err == nil {
		t.Errorf("want error for item inside page header; got nil")
	}
}

func TestDecodeHeapTupleHeaderTooShort(t *testing.T) {
	if _, err := page.DecodeHeapTupleHeader(make([]byte, 10)); err == nil {
		t.Errorf("want error; got nil")
	}
}

type updatingXidTestpair struct {
	name     string
	header   page.HeapTupleHeader
	expected bool
}

var updatingXidTests = []updatingXidTestpair{
	{"no xmax", page.HeapTupleHeader{Xmin: 5}, false},
	{"deleted", page.HeapTupleHeader{Xmin: 5, Xmax: 6}, true},
	{"aborted deleter", page.HeapTupleHeader{Xmin: 5, Xmax: 6, Infomask: page.HeapXmaxInvalid}, false},
	{"lock only", page.HeapTupleHeader{Xmin: 5, Xmax: 6, Infomask: page.HeapXmaxLockOnly}, false},
	{"exclusive lock", page.HeapTupleHeader{Xmin: 5, Xmax: 6, Infomask: page.HeapXmaxExclLock}, false},
	{"multixact updater", page.HeapTupleHeader{Xmin: 5, Xmax: 6, Infomask: page.HeapXmaxIsMulti | page.HeapXmaxExclLock}, true},
	{"committed deleter", page.HeapTupleHeader{Xmin: 5, Xmax: 6, Infomask: page.HeapXmaxCommitted}, true},
}

func TestHasUpdatingXid(t *testing.T) {
	for _, pair := range updatingXidTests {
		if got := pair.header.HasUpdatingXid(); got != pair.expected {
			t.Errorf("%s: want %v; got %v", pair.name, pair.expected, got)
		}
	}
}
