package puizcloud

import (
	"context"
	"io/fs"
	"log"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"
	"github.com/dustin/go-humanize"
	"github.com/thejerf/suture/v4"
)

type Inventory struct {
	Folders int64
	Files   int64
	Bytes   int64
}

func (i Inventory) String() string {
	return humanize.Comma(i.Folders) + " folders, " + humanize.Comma(i.Files) + " files, " + humanize.Bytes(uint64(i.Bytes))
}

// TakeInventory counts everything below root without following symlinks.
// Unreadable entries are skipped.
func TakeInventory(ctx context.Context, root *ServedRoot) (Inventory, error) {
	var folders, files, size atomic.Int64

	conf := &fastwalk.Config{Follow: false}
	err := fastwalk.Walk(conf, root.Path(), func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			return nil
		}
		if path == root.Path() {
			return nil
		}
		switch {
		case d.IsDir():
			folders.Add(1)
		case d.Type().IsRegular():
			files.Add(1)
			if info, err := d.Info(); err == nil {
				size.Add(info.Size())
			}
		}
		return nil
	})

	return Inventory{
		Folders: folders.Load(),
		Files:   files.Load(),
		Bytes:   size.Load(),
	}, err
}

// ScanService logs an inventory of the served root once at startup.
type ScanService struct {
	root *ServedRoot
}

func NewScanService(root *ServedRoot) *ScanService {
	return &ScanService{root: root}
}

func (s *ScanService) Serve(ctx context.Context) error {
	inv, err := TakeInventory(ctx, s.root)
	if err != nil {
		log.Printf("scan %s: %v", s.root.Path(), err)
		return suture.ErrDoNotRestart
	}
	log.Printf("served root %s: %s", s.root.Path(), inv)
	return suture.ErrDoNotRestart
}

func (s *ScanService) String() string {
	return "scan " + s.root.Path()
}
