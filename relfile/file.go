package relfile

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/pganalyze/pgbloat/page"
)

// SegmentBlocks is RELSEG_SIZE: relations are split into 1 GiB files named
// <path>, <path>.1, <path>.2, ...
const SegmentBlocks = 131072

// File reads blocks straight from a relation's segment files while the
// server keeps running. Reads are not coordinated with the server's buffer
// locks, so a block may reflect a concurrent write; callers treat the result
// as approximate.
type File struct {
	name     string
	path     string
	segments []*os.File
	nblocks  page.BlockNumber
	segSize  page.BlockNumber
	pool     sync.Pool
}

// Open opens every segment of the relation stored at path (relative paths
// are as returned by pg_relation_filepath, joined with the data directory by
// the caller)
func Open(name string, path string) (*File, error) {
	return openSegmented(name, path, SegmentBlocks)
}

func openSegmented(name string, path string, segSize page.BlockNumber) (*File, error) {
	f := &File{name: name, path: path, segSize: segSize}
	f.pool.New = func() interface{} {
		return make([]byte, page.BlockSize)
	}

	for segno := 0; ; segno++ {
		segPath := segmentPath(path, segno)
		seg, err := os.Open(segPath)
		if err != nil {
			if segno > 0 && os.IsNotExist(err) {
				break
			}
			f.Close()
			return nil, errors.Wrapf(err, "could not open segment %d of relation %s", segno, name)
		}
		f.segments = append(f.segments, seg)

		info, err := seg.Stat()
		if err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "could not stat %s", segPath)
		}
		blocks := page.BlockNumber(info.Size() / page.BlockSize)
		f.nblocks += blocks
		if blocks < segSize {
			break
		}
	}

	return f, nil
}

func segmentPath(path string, segno int) string {
	if segno == 0 {
		return path
	}
	return fmt.Sprintf("%s.%d", path, segno)
}

func (f *File) Name() string {
	return f.name
}

func (f *File) NumBlocks() page.BlockNumber {
	return f.nblocks
}

// ReadBuffer reads one block. A block cut short by a concurrent truncation
// comes back zero-filled, which reads as a new, empty page.
func (f *File) ReadBuffer(blkno page.BlockNumber) (Buffer, error) {
	if blkno >= f.nblocks {
		return nil, fmt.Errorf("block %d out of range for relation %s (%d blocks)", blkno, f.name, f.nblocks)
	}
	segno := int(blkno / f.segSize)
	if segno >= len(f.segments) {
		return nil, fmt.Errorf("block %d of relation %s is in missing segment %d", blkno, f.name, segno)
	}

	data := f.pool.Get().([]byte)
	off := int64(blkno%f.segSize) * page.BlockSize
	n, err := f.segments[segno].ReadAt(data, off)
	if err != nil && err != io.EOF {
		f.pool.Put(data)
		return nil, errors.Wrapf(err, "could not read block %d of relation %s", blkno, f.name)
	}
	for i := n; i < len(data); i++ {
		data[i] = 0
	}

	p, err := page.New(data)
	if err != nil {
		f.pool.Put(data)
		return nil, err
	}
	return &fileBuffer{file: f, data: data, page: p}, nil
}

func (f *File) Close() error {
	var firstErr error
	for _, seg := range f.segments {
		if err := seg.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.segments = nil
	return firstErr
}

type fileBuffer struct {
	file *File
	data []byte
	page *page.Page
}

func (b *fileBuffer) Page() *page.Page {
	return b.page
}

func (b *fileBuffer) Release() {
	if b.data == nil {
		return
	}
	b.file.pool.Put(b.data)
	b.data = nil
	b.page = nil
}
