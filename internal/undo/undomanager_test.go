/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package undo

import (
	"testing"
	"time"
)

func TestUndoRedoBasic(t *testing.T) {
	m := NewManager(Config{MaxBytes: 1024 * 1024, MaxDepth: 10, MinInterval: 10 * time.Millisecond})
	t0 := time.Now()
	m.Push(Snapshot{Key: "tpl", Blob: []byte("a"), TS: t0})
	m.Push(Snapshot{Key: "tpl", Blob: []byte("b"), TS: t0.Add(20 * time.Millisecond)})
	if _, keys, total := m.Stats(); keys != 1 || total != 2 {
		t.Fatalf("expected 1 key and 2 snapshots, got keys=%d total=%d", keys, total)
	}
	s, ok := m.Undo("tpl", []byte("c"))
	if !ok || string(s.Blob) != "b" {
		t.Fatalf("undo expected 'b', got ok=%v blob=%q", ok, string(s.Blob))
	}
	s, ok = m.Redo("tpl", []byte("b"))
	if !ok || string(s.Blob) != "c" {
		t.Fatalf("redo expected 'c', got ok=%v blob=%q", ok, string(s.Blob))
	}
	if m.CanRedo("tpl") {
		t.Fatalf("redo stack should be empty")
	}
	s, ok = m.Undo("tpl", []byte("c"))
	if !ok || string(s.Blob) != "b" {
		t.Fatalf("second undo expected 'b', got ok=%v blob=%q", ok, string(s.Blob))
	}
}

func TestPushClearsRedo(t *testing.T) {
	m := NewManager(Config{})
	m.Push(Snapshot{Key: "k", Blob: []byte("1"), TS: time.Now()})
	m.Undo("k", []byte("2"))
	if !m.CanRedo("k") {
		t.Fatalf("expected redo history")
	}
	m.Push(Snapshot{Key: "k", Blob: []byte("3"), TS: time.Now()})
	if m.CanRedo("k") {
		t.Fatalf("push must clear redo")
	}
}

func TestCoalesceKeepsOldestOfGroup(t *testing.T) {
	m := NewManager(Config{MinInterval: 50 * time.Millisecond})
	t0 := time.Now()
	m.Push(Snapshot{Key: "k", Blob: []byte("1"), TS: t0, Group: "b1.content"})
	m.Push(Snapshot{Key: "k", Blob: []byte("2"), TS: t0.Add(10 * time.Millisecond), Group: "b1.content"})
	m.Push(Snapshot{Key: "k", Blob: []byte("3"), TS: t0.Add(40 * time.Millisecond), Group: "b1.content"})
	if _, _, total := m.Stats(); total != 1 {
		t.Fatalf("expected coalesced to 1 snapshot, got %d", total)
	}
	s, ok := m.Undo("k", []byte("4"))
	if !ok || string(s.Blob) != "1" {
		t.Fatalf("expected pre-burst snapshot '1', got ok=%v blob=%q", ok, string(s.Blob))
	}
}

func TestNoCoalesceAcrossGroupsOrUngrouped(t *testing.T) {
	m := NewManager(Config{MinInterval: time.Second})
	t0 := time.Now()
	m.Push(Snapshot{Key: "k", Blob: []byte("1"), TS: t0})
	m.Push(Snapshot{Key: "k", Blob: []byte("2"), TS: t0})
	m.Push(Snapshot{Key: "k", Blob: []byte("3"), TS: t0, Group: "a"})
	m.Push(Snapshot{Key: "k", Blob: []byte("4"), TS: t0, Group: "b"})
	if _, _, total := m.Stats(); total != 4 {
		t.Fatalf("expected 4 snapshots, got %d", total)
	}
}

func TestCaps(t *testing.T) {
	m := NewManager(Config{MaxBytes: 20, MaxDepth: 2, MinInterval: time.Millisecond})
	for i := 0; i < 10; i++ {
		m.Push(Snapshot{Key: "k", Blob: []byte("xxxxx"), TS: time.Now().Add(time.Duration(i) * time.Millisecond)})
	}
	if _, _, total := m.Stats(); total > 2 {
		t.Fatalf("expected MaxDepth cap to limit to 2, got %d", total)
	}
}

func TestGlobalPruneAcrossKeys(t *testing.T) {
	m := NewManager(Config{MaxBytes: 8, MinInterval: time.Millisecond})
	t0 := time.Now()
	m.Push(Snapshot{Key: "one", Blob: []byte("xxxx"), TS: t0})
	m.Push(Snapshot{Key: "two", Blob: []byte("yyyy"), TS: t0.Add(time.Second)})
	m.Push(Snapshot{Key: "two", Blob: []byte("zzzz"), TS: t0.Add(2 * time.Second)})

	if m.CanUndo("one") {
		t.Fatalf("expected key one to have been pruned")
	}
	if _, ok := m.Undo("two", nil); !ok {
		t.Fatalf("expected key two to have snapshots")
	}
}

func TestClearAndStats(t *testing.T) {
	m := NewManager(Config{MaxBytes: 1024, MaxDepth: 10})
	m.Push(Snapshot{Key: "k", Blob: []byte("abcdef"), TS: time.Now()})
	if tb, keys, total := m.Stats(); tb == 0 || keys != 1 || total != 1 {
		t.Fatalf("unexpected stats before clear: tb=%d keys=%d total=%d", tb, keys, total)
	}
	m.Clear("k")
	if tb, keys, total := m.Stats(); tb != 0 || keys != 0 || total != 0 {
		t.Fatalf("expected cleared stats to be zero, got tb=%d keys=%d total=%d", tb, keys, total)
	}
}
