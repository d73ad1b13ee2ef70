// Package tui is the parley terminal interface: a conversation list, a message
// thread with the composer, search and help, driven by tview.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/parley/internal/bus"
	"github.com/matheus3301/parley/internal/composer"
	"github.com/matheus3301/parley/internal/config"
	"github.com/matheus3301/parley/internal/message"
	"github.com/matheus3301/parley/internal/outbox"
	"github.com/matheus3301/parley/internal/status"
	"github.com/matheus3301/parley/internal/store"
	"github.com/matheus3301/parley/internal/tui/editor"
	"github.com/matheus3301/parley/internal/tui/keys"
	"github.com/matheus3301/parley/internal/tui/model"
	"github.com/matheus3301/parley/internal/tui/ui"
	"github.com/matheus3301/parley/internal/tui/views"
	"github.com/rivo/tview"
	"go.uber.org/zap"
)

// Page names.
const (
	pageChats  = "chats"
	pageThread = "thread"
	pageSearch = "search"
	pageHelp   = "help"
)

const promptHeight = 3

// Peer is the connection control the :offline and :online commands use.
type Peer interface {
	GoOffline() error
	Reconnect(ctx context.Context) error
}

// Committed is the payload of composer.committed.
type Committed struct {
	ChatID string
	Kind   message.Kind
}

// Deps are the services the TUI runs on.
type Deps struct {
	Session string
	Config  *config.Config
	DB      *store.DB
	Bus     *bus.Bus
	Machine *status.Machine
	Queue   model.Queuer
	Peer    Peer
	Logger  *zap.Logger
}

// App is the main TUI application shell.
type App struct {
	app     *tview.Application
	bus     *bus.Bus
	machine *status.Machine
	peer    Peer
	logger  *zap.Logger
	vm      *model.ViewModel
	theme   *ui.Theme

	root      *tview.Flex
	pages     *ui.Pages
	prompt    *ui.Prompt
	flash     *ui.FlashModel
	flashBar  *ui.FlashBar
	crumbs    *ui.Crumbs
	menu      *ui.Menu
	registry  *keys.Registry
	statusBar *views.StatusBar
	chatList  *views.ConversationList
	composer  *views.Composer
	thread    *views.MessageThread
	search    *views.SearchView
	help      *views.HelpView

	components map[string]ui.Component
	ctx        context.Context
	cancel     context.CancelFunc
}

// New creates the TUI application.
func New(d Deps) *App {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Config == nil {
		d.Config = config.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.ThemeFor(d.Config.Theme.Background)
	vm := model.NewViewModel(d.DB, d.Queue, d.Machine)

	a := &App{
		app:       tview.NewApplication(),
		bus:       d.Bus,
		machine:   d.Machine,
		peer:      d.Peer,
		logger:    d.Logger,
		vm:        vm,
		theme:     theme,
		pages:     ui.NewPages(),
		prompt:    ui.NewPrompt(theme),
		flash:     ui.NewFlashModel(),
		flashBar:  ui.NewFlashBar(theme),
		crumbs:    ui.NewCrumbs(theme),
		menu:      ui.NewMenu(theme),
		registry:  keys.NewRegistry(),
		statusBar: views.NewStatusBar(theme),
		chatList:  views.NewConversationList(theme),
		search:    views.NewSearchView(theme),
		help:      views.NewHelpView(theme),
		ctx:       ctx,
		cancel:    cancel,
	}

	state := composer.New(composer.Options{
		Text:        vm.Draft(),
		Editing:     vm.Editing(),
		Enabled:     vm.Enabled(),
		Placeholder: d.Config.Composer.Placeholder,
		Style:       theme.ComposerTextStyle(),
		OnCommit:    a.commit,
	})
	a.composer = views.NewComposer(state, theme)
	a.thread = views.NewMessageThread(theme, a.composer)

	a.components = map[string]ui.Component{
		pageChats:  a.chatList,
		pageThread: a.thread,
		pageSearch: a.search,
		pageHelp:   a.help,
	}

	a.statusBar.SetSession(d.Session)
	if d.Machine != nil {
		a.statusBar.SetState(d.Machine.Current())
	}
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(keys.Rune(':', "command", func() { a.showPrompt(ui.PromptCommand) }))
	a.registry.AddGlobal(keys.Rune('?', "help", func() { a.push(pageHelp) }))
	a.registry.AddGlobal(keys.Key(tcell.KeyEscape, "back", a.back))

	a.registry.AddView(pageChats, keys.Rune('q', "quit", a.Stop))
	a.registry.AddView(pageChats, keys.Rune('/', "filter", func() { a.showPrompt(ui.PromptFilter) }))
	a.registry.AddView(pageChats, keys.Rune('j', "down", func() { a.moveChatCursor(1) }))
	a.registry.AddView(pageChats, keys.Rune('k', "up", func() { a.moveChatCursor(-1) }))
	for n := 1; n <= 9; n++ {
		a.registry.AddView(pageChats, keys.Rune(rune('0'+n), "jump", func() {
			if id := a.chatList.ChatByIndex(n); id != "" {
				a.openChat(id)
			}
		}))
	}

	a.registry.AddView(pageThread, keys.Rune('i', "compose", a.focusComposer))
	a.registry.AddView(pageThread, keys.Key(tcell.KeyTab, "compose", a.focusComposer))
}

func (a *App) setupCallbacks() {
	a.chatList.SetSelectedFunc(func(row, _ int) {
		if id := a.chatList.ChatByIndex(row); id != "" {
			a.openChat(id)
		}
	})
	a.search.SetSelectedFunc(func(int, int) {
		if id := a.search.SelectedChat(); id != "" {
			a.openChat(id)
		}
	})

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		switch mode {
		case ui.PromptCommand:
			a.executeCommand(text)
		case ui.PromptFilter:
			a.chatList.SetFilter(text)
		}
	})
	a.prompt.SetOnCancel(a.hidePrompt)

	a.pages.SetOnChange(func(stack []string) {
		trail := make([]string, 0, len(stack))
		for _, name := range stack {
			trail = append(trail, a.components[name].Name())
		}
		a.crumbs.Update(trail)
		a.menu.Update(a.components[stack[len(stack)-1]].Hints())
	})
}

func (a *App) setupLayout() {
	for name, c := range a.components {
		a.pages.AddPage(name, c.(tview.Primitive), true, false)
	}

	a.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.flashBar, 1, 0, false).
		AddItem(a.menu, 1, 0, false).
		AddItem(a.statusBar, 1, 0, false)

	a.app.SetRoot(a.root, true)
	a.app.SetInputCapture(a.capture)

	a.pages.Reset(pageChats)
	a.app.SetFocus(a.chatList)
}

// capture routes keys: text inputs get everything except their escape keys,
// other views go through the key registry.
func (a *App) capture(event *tcell.EventKey) *tcell.EventKey {
	switch a.app.GetFocus().(type) {
	case *ui.Prompt:
		return event
	case *editor.Field:
		switch event.Key() {
		case tcell.KeyEscape:
			a.back()
			return nil
		case tcell.KeyTab:
			a.app.SetFocus(a.thread.Transcript())
			return nil
		}
		return event
	}

	if a.registry.HandleEvent(a.pages.Current(), event) {
		return nil
	}
	return event
}

// commit is the composer's commit callback. It runs on the UI goroutine; the
// store write happens in the background.
func (a *App) commit(kind message.Kind) {
	chatID := a.vm.ActiveChatID()
	a.bus.Emit(bus.KindComposerCommitted, Committed{ChatID: chatID, Kind: kind})
	a.logger.Debug("composer committed", zap.String("chat", chatID), zap.String("kind", string(kind.Type())))

	go func() {
		if err := a.vm.Send(a.ctx, chatID, kind); err != nil {
			a.logger.Warn("queue message failed", zap.Error(err), zap.String("chat", chatID))
			a.flash.Err(err)
			a.app.QueueUpdateDraw(a.refreshFlash)
		}
	}()
}

func (a *App) executeCommand(input string) {
	cmd := ParseCommand(input)
	switch cmd.Canonical() {
	case "chat":
		if cmd.Args == "" {
			a.flash.Warn("usage: :chat <name>")
			break
		}
		id, err := a.vm.OpenChatByName(cmd.Args)
		if err != nil {
			a.flash.Err(err)
			break
		}
		a.showThread(id)
	case "search":
		if cmd.Args == "" {
			a.flash.Warn("usage: :search <query>")
			break
		}
		a.runSearch(cmd.Args)
	case "offline":
		if err := a.peer.GoOffline(); err != nil {
			a.flash.Err(err)
		}
	case "online":
		go func() {
			if err := a.peer.Reconnect(a.ctx); err != nil {
				a.flash.Err(err)
				a.app.QueueUpdateDraw(a.refreshFlash)
			}
		}()
	case "help":
		a.push(pageHelp)
	case "quit":
		a.Stop()
	default:
		a.flash.Warn(fmt.Sprintf("unknown command %q", cmd.Name))
	}
	a.refreshFlash()
}

func (a *App) openChat(chatID string) {
	if err := a.vm.OpenChat(chatID); err != nil {
		a.flash.Err(err)
		a.refreshFlash()
		return
	}
	a.showThread(chatID)
}

func (a *App) showThread(chatID string) {
	chat := a.vm.ActiveChat()
	if chat == nil {
		chat = &store.Chat{ID: chatID}
	}
	a.thread.SetChat(*chat)
	a.thread.Update(a.vm.Messages())
	a.statusBar.SetChat(chat.DisplayName())
	a.refreshChats()

	if a.pages.Current() != pageChats {
		a.pages.Reset(pageChats)
	}
	a.push(pageThread)
	a.focusComposer()
}

func (a *App) runSearch(query string) {
	results, err := a.vm.Search(query)
	if err != nil {
		a.flash.Err(err)
		return
	}
	a.search.Update(query, results)
	a.push(pageSearch)
	a.flash.Info(strconv.Itoa(len(results)) + " results")
}

func (a *App) push(name string) {
	a.pages.Push(name)
	a.focusPage(name)
}

func (a *App) back() {
	if a.pages.Pop() == "" {
		if a.chatList.Filter() != "" {
			a.chatList.ClearFilter()
		}
		return
	}
	if a.pages.Current() == pageChats {
		a.vm.CloseChat()
		a.statusBar.SetChat("")
		a.refreshChats()
	}
	a.focusPage(a.pages.Current())
}

func (a *App) focusPage(name string) {
	switch name {
	case pageThread:
		a.focusComposer()
	default:
		a.app.SetFocus(a.components[name].(tview.Primitive))
	}
}

func (a *App) focusComposer() {
	a.app.SetFocus(a.composer.Field())
}

func (a *App) moveChatCursor(delta int) {
	row, _ := a.chatList.GetSelection()
	row += delta
	if row < 1 {
		row = 1
	}
	if row >= a.chatList.GetRowCount() {
		row = a.chatList.GetRowCount() - 1
	}
	a.chatList.Select(row, 0)
}

func (a *App) showPrompt(mode ui.PromptMode) {
	a.prompt.Activate(mode)
	a.root.ResizeItem(a.prompt, promptHeight, 0)
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	a.root.ResizeItem(a.prompt, 0, 0)
	a.focusPage(a.pages.Current())
}

func (a *App) refreshChats() {
	if err := a.vm.LoadChats(); err != nil {
		a.flash.Err(err)
		return
	}
	a.chatList.Update(a.vm.Chats())
}

func (a *App) refreshFlash() {
	a.flashBar.Update(a.flash.Current())
}

// handleEvent reacts to bus events. It runs on the bus goroutine; view
// updates are queued onto the UI goroutine.
func (a *App) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case bus.KindMessageUpserted:
		ref, ok := evt.Payload.(bus.MessageRef)
		if !ok {
			return
		}
		reloaded, err := a.vm.ReloadMessages(ref.ChatID)
		if err != nil {
			a.logger.Warn("reload messages failed", zap.Error(err))
		}
		if err := a.vm.LoadChats(); err != nil {
			a.logger.Warn("reload chats failed", zap.Error(err))
		}
		a.app.QueueUpdateDraw(func() {
			a.chatList.Update(a.vm.Chats())
			if reloaded {
				a.thread.Update(a.vm.Messages())
			}
		})
	case bus.KindHistoryIngested:
		if err := a.vm.LoadChats(); err != nil {
			a.logger.Warn("reload chats failed", zap.Error(err))
		}
		a.app.QueueUpdateDraw(func() { a.chatList.Update(a.vm.Chats()) })
	case bus.KindSendFailed:
		if f, ok := evt.Payload.(outbox.SendFailed); ok {
			a.flash.Err(errors.New("send failed: " + f.Err))
			a.app.QueueUpdateDraw(a.refreshFlash)
		}
	case status.KindStatusChanged:
		change, ok := evt.Payload.(status.StatusChange)
		if !ok {
			return
		}
		switch change.To {
		case status.Offline:
			a.flash.Warn("offline: messages will wait in the outbox")
		case status.Ready:
			a.flash.Info("connected")
		}
		a.app.QueueUpdateDraw(func() {
			a.statusBar.SetState(change.To)
			a.refreshFlash()
		})
	}
}

func (a *App) listen(ch <-chan bus.Event) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case evt := <-ch:
			a.handleEvent(evt)
		case <-ticker.C:
			a.app.QueueUpdateDraw(func() {
				a.refreshFlash()
				a.statusBar.SetState(a.vm.Status())
			})
		case <-a.ctx.Done():
			return
		}
	}
}

// Run loads the chat list and runs the TUI until it is stopped.
func (a *App) Run() error {
	ch, unsub := a.bus.Subscribe("", 256)
	defer unsub()
	go a.listen(ch)

	a.refreshChats()
	err := a.app.Run()
	a.cancel()
	return err
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
