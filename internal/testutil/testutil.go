// Package testutil provides shared test helpers: temp workspaces, temp
// journals, and a scripted fake LLM client.
package testutil

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/starford/scrivano/internal/journal"
	"github.com/starford/scrivano/internal/storage"
)

// TestJournal creates a temporary SQLite journal that is cleaned up
// automatically.
func TestJournal(t *testing.T) *journal.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "scrivano-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := journal.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestWorkspace creates a temporary workspace directory with a
// storage.Provider rooted at it.
func TestWorkspace(t *testing.T) (string, storage.Provider) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}

// FakeReply is one scripted LLM response.
type FakeReply struct {
	Text string
	Err  error
}

// FakeCall records one Generate invocation.
type FakeCall struct {
	System string
	Prompt string
}

// FakeLLM is a scripted llm.Client. Replies are consumed in order; calls
// beyond the script fail.
type FakeLLM struct {
	mu      sync.Mutex
	Replies []FakeReply
	Calls   []FakeCall
}

// Generate implements llm.Client.
func (f *FakeLLM) Generate(_ context.Context, system, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, FakeCall{System: system, Prompt: prompt})
	if len(f.Replies) == 0 {
		return "", errors.New("fake llm: no scripted reply")
	}
	r := f.Replies[0]
	f.Replies = f.Replies[1:]
	return r.Text, r.Err
}

// CallCount returns the number of Generate invocations so far.
func (f *FakeLLM) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}
