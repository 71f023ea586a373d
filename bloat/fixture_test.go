package bloat

import (
	"testing"

	"github.com/pganalyze/pgbloat/page"
	"github.com/pganalyze/pgbloat/relfile"
)

var tuplePayload = []byte("payload")

// length of every heap tuple built below: 24 byte header plus payload
const tupleLen = 31

func tid(block page.BlockNumber, offset page.OffsetNumber) page.TID {
	return page.TID{Block: block, Offset: offset}
}

func liveTuple(self page.TID) []byte {
	return page.HeapTupleBytes(page.HeapTupleHeader{Xmin: 10, Ctid: self, Infomask: page.HeapXmaxInvalid}, tuplePayload)
}

func deletedTuple(self page.TID, xmax page.TransactionID) []byte {
	return page.HeapTupleBytes(page.HeapTupleHeader{Xmin: 10, Xmax: xmax, Ctid: self}, tuplePayload)
}

func updatedTuple(xmax page.TransactionID, next page.TID) []byte {
	return page.HeapTupleBytes(page.HeapTupleHeader{Xmin: 10, Xmax: xmax, Ctid: next}, tuplePayload)
}

func successorTuple(xmin page.TransactionID, self page.TID) []byte {
	return page.HeapTupleBytes(page.HeapTupleHeader{Xmin: xmin, Ctid: self, Infomask: page.HeapXmaxInvalid}, tuplePayload)
}

func tupleWithHeader(h page.HeapTupleHeader) []byte {
	return page.HeapTupleBytes(h, tuplePayload)
}

func unusedPointer() page.ItemID {
	return page.MakeItemID(0, page.LPUnused, 0)
}

// heapPage builds a heap page holding items at offsets 1..n
func heapPage(items ...[]byte) []byte {
	b := page.NewHeapPageBuilder()
	for _, item := range items {
		b.AddItem(item)
	}
	return b.Bytes()
}

// bloatedTable builds pages pages of perPage tuples; tuples at odd offsets
// are deleted. It returns the blocks and every TID in order.
func bloatedTable(pages int, perPage int) ([][]byte, []page.TID) {
	var blocks [][]byte
	var tids []page.TID
	for blkno := 0; blkno < pages; blkno++ {
		b := page.NewHeapPageBuilder()
		for off := 1; off <= perPage; off++ {
			self := tid(page.BlockNumber(blkno), page.OffsetNumber(off))
			if off%2 == 1 {
				b.AddItem(deletedTuple(self, 20))
			} else {
				b.AddItem(liveTuple(self))
			}
			tids = append(tids, self)
		}
		blocks = append(blocks, b.Bytes())
	}
	return blocks, tids
}

// btreeBlocks builds a btree index over tids, which must be in key order,
// with perLeaf entries per leaf page. When reversed is set the leaves are
// stored in the opposite block order from their key order.
func btreeBlocks(tids []page.TID, perLeaf int, reversed bool) [][]byte {
	nleaves := (len(tids) + perLeaf - 1) / perLeaf
	if nleaves == 0 {
		return [][]byte{page.NewBTreeMetaPage(page.PNone, 0)}
	}

	leafBlock := func(k int) page.BlockNumber {
		if reversed {
			return page.BlockNumber(nleaves - k)
		}
		return page.BlockNumber(1 + k)
	}

	blocks := make([][]byte, 1+nleaves)
	for k := 0; k < nleaves; k++ {
		o := page.BTPageOpaque{Flags: page.BTPLeaf}
		if k > 0 {
			o.Prev = leafBlock(k - 1)
		}
		if k < nleaves-1 {
			o.Next = leafBlock(k + 1)
		}
		if nleaves == 1 {
			o.Flags |= page.BTPRoot
		}

		b := page.NewBTreePageBuilder(o)
		if !o.IsRightmost() {
			b.AddItem(page.PivotTupleBytes(0, []byte("hikey")))
		}
		end := (k + 1) * perLeaf
		if end > len(tids) {
			end = len(tids)
		}
		for _, t := range tids[k*perLeaf : end] {
			b.AddItem(page.IndexTupleBytes(t, []byte("k")))
		}
		blocks[leafBlock(k)] = b.Bytes()
	}

	if nleaves == 1 {
		blocks[0] = page.NewBTreeMetaPage(1, 0)
		return blocks
	}

	rootBlkno := page.BlockNumber(nleaves + 1)
	root := page.NewBTreePageBuilder(page.BTPageOpaque{Level: 1, Flags: page.BTPRoot})
	for k := 0; k < nleaves; k++ {
		root.AddItem(page.PivotTupleBytes(leafBlock(k), nil))
	}
	blocks = append(blocks, root.Bytes())
	blocks[0] = page.NewBTreeMetaPage(rootBlkno, 1)
	return blocks
}

func memoryIndex(name string, blocks [][]byte) (IndexSource, *relfile.Memory) {
	mem := relfile.NewMemory(name, blocks...)
	return IndexSource{
		Name:         name,
		AccessMethod: "btree",
		IsReady:      true,
		Open:         func() (relfile.Relation, error) { return mem, nil },
	}, mem
}

func unopenableIndex(t *testing.T, name string, accessMethod string, ready bool) IndexSource {
	return IndexSource{
		Name:         name,
		AccessMethod: accessMethod,
		IsReady:      ready,
		Open: func() (relfile.Relation, error) {
			t.Errorf("index %s should not have been opened", name)
			return relfile.NewMemory(name), nil
		},
	}
}

func checkReleased(t *testing.T, mems ...*relfile.Memory) {
	t.Helper()
	for _, mem := range mems {
		if mem.Held() != 0 {
			t.Errorf("%s: want all buffers released; got %d held", mem.Name(), mem.Held())
		}
		if mem.MaxHeld() > 2 {
			t.Errorf("%s: want at most 2 buffers held at once; got %d", mem.Name(), mem.MaxHeld())
		}
	}
}
