// Package command routes console input to session operations. Lines that
// start with "/" are slash commands; any other line is appended to the
// active document as typed text.
package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"pkt.systems/pslog"
	"pkt.systems/tabedit/core"
	"pkt.systems/tabedit/internal/version"
	"pkt.systems/tabedit/schema"
)

const defaultTitleWidth = 24

// HandlerConfig configures slash command behavior.
type HandlerConfig struct {
	// TitleWidth bounds tab titles in /tabs listings, in terminal cells.
	TitleWidth          int
	DisableAuditLogging bool
}

// Result is what a handled line produced for the console.
type Result struct {
	Lines []string
	Quit  bool
}

// Handler routes slash commands to service operations.
type Handler struct {
	service core.Service
	cfg     HandlerConfig
}

// NewHandler constructs a command handler.
func NewHandler(service core.Service, cfg HandlerConfig) *Handler {
	if cfg.TitleWidth <= 0 {
		cfg.TitleWidth = defaultTitleWidth
	}
	return &Handler{service: service, cfg: cfg}
}

// Handle executes one line of console input.
func (h *Handler) Handle(ctx context.Context, input string) (Result, error) {
	if ctx == nil {
		return Result{}, errors.New("missing context")
	}
	log := pslog.Ctx(ctx).With("input_len", len(input))
	cmd, ok := Parse(input)
	if !ok {
		return Result{}, h.handleText(ctx, log, input)
	}
	if !h.cfg.DisableAuditLogging {
		log.Debug("audit command", "command_type", "slash", "command", strings.TrimSpace(input))
	}
	log = log.With("command", cmd.Name, "args", len(cmd.Args))
	log.Info("command slash request")
	switch cmd.Name {
	case "":
		log.Warn("command slash rejected", "reason", "empty")
		return Result{}, fmt.Errorf("%w: empty command", schema.ErrInvalidCommand)
	case "new":
		return h.handleNew(ctx, log, cmd)
	case "open":
		return h.handleOpen(ctx, log, cmd)
	case "save":
		return h.handleSave(ctx, log)
	case "search", "find":
		return h.handleSearch(ctx, log, cmd)
	case "replace":
		return h.handleReplace(ctx, log, cmd)
	case "undo":
		return h.handleUndo(ctx, log)
	case "redo":
		return h.handleRedo(ctx, log)
	case "close":
		return h.handleClose(ctx, log, cmd)
	case "tabs":
		return h.handleTabs(ctx)
	case "switch":
		return h.handleSwitch(ctx, log, cmd)
	case "move":
		return h.handleMove(ctx, log, cmd)
	case "rename":
		return h.handleRename(ctx, log, cmd)
	case "insert":
		return h.handleInsert(ctx, log, cmd)
	case "delete":
		return h.handleDelete(ctx, log, cmd)
	case "show":
		return h.handleShow(ctx)
	case "verify":
		return h.handleVerify(ctx, log)
	case "help":
		return Result{Lines: helpLines()}, nil
	case "version":
		return Result{Lines: []string{version.Current()}}, nil
	case "quit", "exit", "q":
		return Result{Quit: true}, nil
	default:
		log.Warn("command slash rejected", "reason", "unknown")
		return Result{}, fmt.Errorf("%w: unknown command /%s", schema.ErrInvalidCommand, cmd.Name)
	}
}

// handleText appends a typed line to the end of the active document.
func (h *Handler) handleText(ctx context.Context, log pslog.Logger, input string) error {
	active, ok := h.service.ActiveTab(ctx)
	if !ok {
		return schema.ErrNoActiveTab
	}
	text := input + "\n"
	if _, err := h.service.Edit(ctx, schema.EditRequest{TabID: active.ID, Op: schema.EditInsert, Pos: active.Length, Text: text}); err != nil {
		log.Warn("command text append failed", "err", err)
		return err
	}
	return nil
}

func (h *Handler) handleNew(ctx context.Context, log pslog.Logger, cmd Command) (Result, error) {
	resp, err := h.service.CreateTab(ctx, schema.CreateTabRequest{Title: schema.TabTitle(cmd.Remainder)})
	if err != nil {
		log.Warn("command new failed", "err", err)
		return Result{}, err
	}
	log.Info("command new completed", "tab", resp.Tab.ID)
	return Result{Lines: []string{"New tab created"}}, nil
}

func (h *Handler) handleOpen(ctx context.Context, log pslog.Logger, cmd Command) (Result, error) {
	if cmd.Remainder == "" {
		return Result{}, usage("/open <path>")
	}
	resp, err := h.service.OpenFile(ctx, schema.OpenFileRequest{Path: cmd.Remainder})
	if err != nil {
		log.Warn("command open failed", "err", err)
		return Result{}, err
	}
	log.Info("command open completed", "tab", resp.Tab.ID)
	return Result{Lines: []string{fmt.Sprintf("opened %s", resp.Tab.Filename)}}, nil
}

func (h *Handler) handleSave(ctx context.Context, log pslog.Logger) (Result, error) {
	if _, err := h.service.Save(ctx, schema.SaveRequest{}); err != nil {
		log.Warn("command save failed", "err", err)
		return Result{}, err
	}
	return Result{}, nil
}

func (h *Handler) handleSearch(ctx context.Context, log pslog.Logger, cmd Command) (Result, error) {
	if cmd.Remainder == "" {
		return Result{}, usage("/search <word>")
	}
	resp, err := h.service.Search(ctx, schema.SearchRequest{Term: cmd.Remainder})
	if err != nil {
		log.Warn("command search failed", "err", err)
		return Result{}, err
	}
	if !resp.Found {
		return Result{}, nil
	}
	log.Info("command search completed", "matches", len(resp.Spans))
	return Result{Lines: strings.Split(resp.Rendering, "\n")}, nil
}

func (h *Handler) handleReplace(ctx context.Context, log pslog.Logger, cmd Command) (Result, error) {
	args, err := QuotedArgs(cmd.Remainder)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", schema.ErrInvalidCommand, err)
	}
	if len(args) != 2 {
		return Result{}, usage(`/replace <old> <new> (quote arguments containing spaces)`)
	}
	resp, err := h.service.Replace(ctx, schema.ReplaceRequest{Old: args[0], New: args[1]})
	if err != nil {
		log.Warn("command replace failed", "err", err)
		return Result{}, err
	}
	log.Info("command replace completed", "count", resp.Count)
	return Result{}, nil
}

func (h *Handler) handleUndo(ctx context.Context, log pslog.Logger) (Result, error) {
	resp, err := h.service.Undo(ctx, schema.UndoRequest{})
	if err != nil {
		log.Warn("command undo failed", "err", err)
		return Result{}, err
	}
	if !resp.Mutated {
		return Result{Lines: []string{"nothing to undo"}}, nil
	}
	return Result{}, nil
}

func (h *Handler) handleRedo(ctx context.Context, log pslog.Logger) (Result, error) {
	resp, err := h.service.Redo(ctx, schema.RedoRequest{})
	if err != nil {
		log.Warn("command redo failed", "err", err)
		return Result{}, err
	}
	if !resp.Mutated {
		return Result{Lines: []string{"nothing to redo"}}, nil
	}
	return Result{}, nil
}

func (h *Handler) handleClose(ctx context.Context, log pslog.Logger, cmd Command) (Result, error) {
	index, err := h.tabIndex(ctx, cmd.Args, "/close [n]")
	if err != nil {
		return Result{}, err
	}
	resp, err := h.service.CloseTab(ctx, schema.CloseTabRequest{Index: index})
	if err != nil {
		log.Warn("command close failed", "err", err)
		return Result{}, err
	}
	log.Info("command close completed", "tab", resp.Tab.ID)
	return Result{Lines: []string{fmt.Sprintf("tab closed: %s", resp.Tab.Title)}}, nil
}

func (h *Handler) handleTabs(ctx context.Context) (Result, error) {
	resp, err := h.service.ListTabs(ctx, schema.ListTabsRequest{})
	if err != nil {
		return Result{}, err
	}
	if len(resp.Tabs) == 0 {
		return Result{Lines: []string{"no tabs open"}}, nil
	}
	lines := make([]string, 0, len(resp.Tabs))
	for _, tab := range resp.Tabs {
		lines = append(lines, h.tabLine(tab))
	}
	return Result{Lines: lines}, nil
}

// tabLine renders one row of the tab list. Titles are truncated and padded
// by display width so wide runes stay aligned.
func (h *Handler) tabLine(tab schema.TabSnapshot) string {
	marker := " "
	if tab.Active {
		marker = "*"
	}
	title := runewidth.Truncate(string(tab.Title), h.cfg.TitleWidth, "…")
	title = runewidth.FillRight(title, h.cfg.TitleWidth)
	state := ""
	if tab.State == schema.SyncDirty {
		state = " [modified]"
	}
	return fmt.Sprintf("%s%2d %s %s%s", marker, tab.Index+1, title, tab.Filename, state)
}

func (h *Handler) handleSwitch(ctx context.Context, log pslog.Logger, cmd Command) (Result, error) {
	if len(cmd.Args) != 1 {
		return Result{}, usage("/switch <n>")
	}
	index, err := parseTabNumber(cmd.Args[0])
	if err != nil {
		return Result{}, err
	}
	resp, err := h.service.ActivateTab(ctx, schema.ActivateTabRequest{Index: index})
	if err != nil {
		log.Warn("command switch failed", "err", err)
		return Result{}, err
	}
	return Result{Lines: []string{fmt.Sprintf("active tab: %s", resp.Tab.Title)}}, nil
}

func (h *Handler) handleMove(ctx context.Context, log pslog.Logger, cmd Command) (Result, error) {
	if len(cmd.Args) != 2 {
		return Result{}, usage("/move <from> <to>")
	}
	from, err := parseTabNumber(cmd.Args[0])
	if err != nil {
		return Result{}, err
	}
	to, err := parseTabNumber(cmd.Args[1])
	if err != nil {
		return Result{}, err
	}
	if _, err := h.service.MoveTab(ctx, schema.MoveTabRequest{From: from, To: to}); err != nil {
		log.Warn("command move failed", "err", err)
		return Result{}, err
	}
	return h.handleTabs(ctx)
}

func (h *Handler) handleRename(ctx context.Context, log pslog.Logger, cmd Command) (Result, error) {
	if cmd.Remainder == "" {
		return Result{}, usage("/rename <name>")
	}
	active, ok := h.service.ActiveTab(ctx)
	if !ok {
		return Result{}, schema.ErrNoActiveTab
	}
	resp, err := h.service.RenameTabDisplay(ctx, schema.RenameTabRequest{Index: active.Index, Basename: cmd.Remainder})
	if err != nil {
		log.Warn("command rename failed", "err", err)
		return Result{}, err
	}
	return Result{Lines: []string{fmt.Sprintf("tab renamed: %s", resp.Tab.Title)}}, nil
}

func (h *Handler) handleInsert(ctx context.Context, log pslog.Logger, cmd Command) (Result, error) {
	if len(cmd.Args) < 2 {
		return Result{}, usage(`/insert <pos> <text> (quote text to keep spaces or use \n)`)
	}
	pos, err := strconv.Atoi(cmd.Args[0])
	if err != nil {
		return Result{}, usage(`/insert <pos> <text>`)
	}
	text := remainderAfterTokens(cmd.Remainder, 1)
	if strings.HasPrefix(text, `"`) {
		args, err := QuotedArgs(text)
		if err != nil || len(args) != 1 {
			return Result{}, usage(`/insert <pos> "<text>"`)
		}
		text = args[0]
	}
	if _, err := h.service.Edit(ctx, schema.EditRequest{Op: schema.EditInsert, Pos: pos, Text: text}); err != nil {
		log.Warn("command insert failed", "err", err)
		return Result{}, err
	}
	return Result{}, nil
}

func (h *Handler) handleDelete(ctx context.Context, log pslog.Logger, cmd Command) (Result, error) {
	if len(cmd.Args) != 2 {
		return Result{}, usage("/delete <pos> <length>")
	}
	pos, err := strconv.Atoi(cmd.Args[0])
	if err != nil {
		return Result{}, usage("/delete <pos> <length>")
	}
	length, err := strconv.Atoi(cmd.Args[1])
	if err != nil {
		return Result{}, usage("/delete <pos> <length>")
	}
	if _, err := h.service.Edit(ctx, schema.EditRequest{Op: schema.EditDelete, Pos: pos, Length: length}); err != nil {
		log.Warn("command delete failed", "err", err)
		return Result{}, err
	}
	return Result{}, nil
}

func (h *Handler) handleShow(ctx context.Context) (Result, error) {
	resp, err := h.service.GetDocument(ctx, schema.GetDocumentRequest{})
	if err != nil {
		return Result{}, err
	}
	return Result{Lines: strings.Split(resp.Document.Text, "\n")}, nil
}

func (h *Handler) handleVerify(ctx context.Context, log pslog.Logger) (Result, error) {
	resp, err := h.service.Verify(ctx, schema.VerifyRequest{})
	if err != nil {
		log.Warn("command verify failed", "err", err)
		return Result{}, err
	}
	if resp.InSync {
		return Result{Lines: []string{fmt.Sprintf("%s: in sync (%d chars)", resp.Tab.Filename, resp.Tab.Length)}}, nil
	}
	return Result{Lines: []string{fmt.Sprintf("%s: store differs from buffer (stored %d bytes, buffer %d bytes)", resp.Tab.Filename, len(resp.Stored), len(resp.Current))}}, nil
}

// tabIndex resolves an optional 1-based tab number, defaulting to the
// active tab.
func (h *Handler) tabIndex(ctx context.Context, args []string, form string) (int, error) {
	switch len(args) {
	case 0:
		active, ok := h.service.ActiveTab(ctx)
		if !ok {
			return 0, schema.ErrNoActiveTab
		}
		return active.Index, nil
	case 1:
		return parseTabNumber(args[0])
	default:
		return 0, usage(form)
	}
}

func parseTabNumber(value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: tab number must be a positive integer", schema.ErrInvalidCommand)
	}
	return n - 1, nil
}

func usage(form string) error {
	return fmt.Errorf("%w: usage: %s", schema.ErrInvalidCommand, form)
}

func helpLines() []string {
	return []string{
		"Commands:",
		"  /new [title]            open an empty tab",
		"  /open <path>            open a UTF-8 file in a new tab",
		"  /save                   push the active tab to the store",
		"  /search <word>          highlight every occurrence (case-insensitive)",
		"  /replace <old> <new>    replace every occurrence (case-sensitive)",
		"  /undo, /redo            step through edit history",
		"  /insert <pos> <text>    insert text at a character position",
		"  /delete <pos> <length>  delete characters",
		"  /show                   print the active document",
		"  /verify                 compare the buffer with the store record",
		"  /tabs                   list tabs",
		"  /switch <n>             activate tab n",
		"  /move <from> <to>       reorder tabs",
		"  /rename <name>          change the active tab's title",
		"  /close [n]              close tab n (default active)",
		"  /version, /help, /quit",
		"Any other line is appended to the active document.",
	}
}
