// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// LockSuffix is appended to a store path to name its lock file.
const LockSuffix = ".lock"

// ErrLocked is returned when a store's lock can't be acquired in time.
var ErrLocked = errors.New("store is locked by another writer")

// LockOptions control lock acquisition.
type LockOptions struct {
	// Timeout bounds how long AcquireLock waits for another
	// holder to release the lock.
	Timeout time.Duration

	// StaleAge is the age after which an existing lock file is
	// assumed to belong to a crashed writer and is removed.
	// Zero means locks are never broken.
	StaleAge time.Duration
}

// DefaultLockOptions are used when nil LockOptions are given.
var DefaultLockOptions = &LockOptions{
	Timeout:  10 * time.Second,
	StaleAge: 10 * time.Minute,
}

// A Lock is a held store lock.
type Lock struct {
	path string
}

// AcquireLock takes the lock for the store at path by exclusively
// creating path+LockSuffix.
func AcquireLock(path string, opts *LockOptions) (*Lock, error) {
	if opts == nil {
		opts = DefaultLockOptions
	}
	lockPath := path + LockSuffix
	deadline := time.Now().Add(opts.Timeout)
	delay := 10 * time.Millisecond
	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			fmt.Fprintf(f, "pid %d at %s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
			f.Close()
			return &Lock{lockPath}, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, err
		}
		if opts.StaleAge > 0 {
			if info, err := os.Stat(lockPath); err == nil && time.Since(info.ModTime()) > opts.StaleAge {
				os.Remove(lockPath)
				continue
			}
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%s: %w", lockPath, ErrLocked)
		}
		time.Sleep(delay)
		if delay < 200*time.Millisecond {
			delay *= 2
		}
	}
}

// Release releases the lock.
func (l *Lock) Release() error {
	return os.Remove(l.path)
}
