// Package model holds the TUI's view state. ViewModel is the parent side of
// the composer: it owns the per-chat drafts, the editing flag and the active
// chat, and hands them to the composer as bindings.
package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/matheus3301/parley/internal/binding"
	"github.com/matheus3301/parley/internal/message"
	"github.com/matheus3301/parley/internal/status"
	"github.com/matheus3301/parley/internal/store"
)

const (
	chatPageSize    = 100
	messagePageSize = 200
	searchPageSize  = 50
)

// Queuer accepts committed messages for delivery.
type Queuer interface {
	Queue(ctx context.Context, chatID string, kind message.Kind) (string, error)
}

// ViewModel caches store state for the views. Loads may run on any
// goroutine; the draft and editing flag belong to the UI goroutine.
type ViewModel struct {
	mu sync.RWMutex

	db      *store.DB
	queue   Queuer
	machine *status.Machine

	chats      []store.Chat
	messages   []store.Message
	activeChat *store.Chat

	drafts  map[string]string
	editing bool
}

// NewViewModel creates a view model over the session store.
func NewViewModel(db *store.DB, q Queuer, m *status.Machine) *ViewModel {
	return &ViewModel{
		db:      db,
		queue:   q,
		machine: m,
		drafts:  make(map[string]string),
	}
}

// Draft returns the binding for the active chat's draft. Each chat keeps its
// own draft; with no chat open the draft is empty and writes are dropped.
func (vm *ViewModel) Draft() binding.Binding[string] {
	return binding.New(
		func() string {
			vm.mu.RLock()
			defer vm.mu.RUnlock()
			if vm.activeChat == nil {
				return ""
			}
			return vm.drafts[vm.activeChat.ID]
		},
		func(text string) {
			vm.mu.Lock()
			defer vm.mu.Unlock()
			if vm.activeChat == nil {
				return
			}
			if text == "" {
				delete(vm.drafts, vm.activeChat.ID)
				return
			}
			vm.drafts[vm.activeChat.ID] = text
		},
	)
}

// Editing returns the binding for the composer's editing flag.
func (vm *ViewModel) Editing() binding.Binding[bool] {
	return binding.Var(&vm.editing)
}

// IsEditing reports whether the composer has focus.
func (vm *ViewModel) IsEditing() bool { return vm.editing }

// Enabled returns the read-only binding that gates sending: a chat is open and
// the session is READY.
func (vm *ViewModel) Enabled() binding.Binding[bool] {
	return binding.New(func() bool {
		vm.mu.RLock()
		open := vm.activeChat != nil
		vm.mu.RUnlock()
		return open && vm.machine != nil && vm.machine.IsReady()
	}, nil)
}

// LoadChats refreshes the chat list.
func (vm *ViewModel) LoadChats() error {
	chats, err := vm.db.ListChats(chatPageSize, 0)
	if err != nil {
		return fmt.Errorf("load chats: %w", err)
	}
	vm.mu.Lock()
	vm.chats = chats
	vm.mu.Unlock()
	return nil
}

// OpenChat makes chatID the active chat, loads its messages and marks it read.
func (vm *ViewModel) OpenChat(chatID string) error {
	chat, err := vm.db.GetChat(chatID)
	if err != nil {
		return fmt.Errorf("open chat: %w", err)
	}
	if chat == nil {
		chat = &store.Chat{ID: chatID, Name: chatID}
		if err := vm.db.UpsertChat(chat); err != nil {
			return fmt.Errorf("create chat: %w", err)
		}
	}
	if err := vm.db.MarkChatRead(chatID); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	chat.UnreadCount = 0

	msgs, err := vm.db.ListMessages(chatID, 0, messagePageSize)
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}
	vm.mu.Lock()
	vm.activeChat = chat
	vm.messages = msgs
	vm.mu.Unlock()
	return nil
}

// OpenChatByName resolves name (display name or ID) and opens it. Unknown
// names start a new chat.
func (vm *ViewModel) OpenChatByName(name string) (string, error) {
	chat, err := vm.db.GetChatByName(name)
	if err != nil {
		return "", fmt.Errorf("find chat: %w", err)
	}
	id := name
	if chat != nil {
		id = chat.ID
	}
	return id, vm.OpenChat(id)
}

// CloseChat clears the active chat. Its draft is kept.
func (vm *ViewModel) CloseChat() {
	vm.mu.Lock()
	vm.activeChat = nil
	vm.messages = nil
	vm.mu.Unlock()
}

// ReloadMessages refreshes the active chat's messages if chatID is active.
// It reports whether anything was reloaded.
func (vm *ViewModel) ReloadMessages(chatID string) (bool, error) {
	vm.mu.RLock()
	active := vm.activeChat != nil && vm.activeChat.ID == chatID
	vm.mu.RUnlock()
	if !active {
		return false, nil
	}
	msgs, err := vm.db.ListMessages(chatID, 0, messagePageSize)
	if err != nil {
		return false, fmt.Errorf("load messages: %w", err)
	}
	if err := vm.db.MarkChatRead(chatID); err != nil {
		return false, fmt.Errorf("mark read: %w", err)
	}
	vm.mu.Lock()
	vm.messages = msgs
	vm.mu.Unlock()
	return true, nil
}

// Send queues a committed message for chatID.
func (vm *ViewModel) Send(ctx context.Context, chatID string, kind message.Kind) error {
	if chatID == "" {
		return fmt.Errorf("send: no chat open")
	}
	if _, err := vm.queue.Queue(ctx, chatID, kind); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// Search runs a full-text search across all chats.
func (vm *ViewModel) Search(query string) ([]store.SearchResult, error) {
	results, err := vm.db.SearchMessages(query, "", searchPageSize)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return results, nil
}

// Chats returns a snapshot of the chat list.
func (vm *ViewModel) Chats() []store.Chat {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.chats
}

// Messages returns a snapshot of the active chat's messages, newest first.
func (vm *ViewModel) Messages() []store.Message {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.messages
}

// ActiveChat returns the open chat, or nil.
func (vm *ViewModel) ActiveChat() *store.Chat {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if vm.activeChat == nil {
		return nil
	}
	c := *vm.activeChat
	return &c
}

// ActiveChatID returns the open chat's ID, or "".
func (vm *ViewModel) ActiveChatID() string {
	if c := vm.ActiveChat(); c != nil {
		return c.ID
	}
	return ""
}

// Status returns the session state.
func (vm *ViewModel) Status() status.State {
	if vm.machine == nil {
		return status.Booting
	}
	return vm.machine.Current()
}
