package command

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"

	"guild-loot/internal/metrics"
	"guild-loot/internal/model"
	"guild-loot/internal/render"
	"guild-loot/internal/service"
	"guild-loot/pkg/logger"

	"go.uber.org/zap"
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrUnknownCommand   = errors.New("unknown command")
	ErrMissingOption    = errors.New("missing required option")
)

// Engine is the part of the loot service the dispatcher drives.
type Engine interface {
	ListAll(ctx context.Context) iter.Seq2[service.ItemQueue, error]
	ListForItem(ctx context.Context, fragment string) (*service.ItemQueue, error)
	ListForMember(ctx context.Context, externalID string) (*service.MemberLoot, error)
	Raffle(ctx context.Context) (*model.Member, error)
	Roll() int
	AddItem(ctx context.Context, name string) (*service.ItemQueue, error)
	DeleteItem(ctx context.Context, fragment string) (*model.Item, error)
	AddMember(ctx context.Context, name, externalID string) (*model.Member, int, error)
	DeleteMember(ctx context.Context, externalID string) (*model.Member, error)
	MovePosition(ctx context.Context, fragment, externalID string, newRank int) (*service.Change, error)
	PassItem(ctx context.Context, fragment, externalID string) (*service.Change, error)
	BindItem(ctx context.Context, fragment, externalID string) (*service.Change, error)
}

// Invocation is one command call from any transport.
type Invocation struct {
	Command    string `json:"command"`
	CallerID   string `json:"caller_id"`
	CallerName string `json:"caller_name"`
	// CallerAdmin is set by transports that know the caller's platform permissions.
	CallerAdmin bool              `json:"-"`
	Args        map[string]string `json:"args"`
}

func (inv Invocation) arg(name string) string {
	return strings.TrimSpace(inv.Args[name])
}

// Response holds the rendered reply. Err is the failure behind a "❌" reply.
type Response struct {
	Pages     []string `json:"pages"`
	Ephemeral bool     `json:"ephemeral"`
	Err       error    `json:"-"`
}

func reply(msg string) Response {
	return Response{Pages: render.Paginate(msg, render.MessageLimit)}
}

type handler func(ctx context.Context, inv Invocation) (string, error)

type Dispatcher struct {
	engine   Engine
	render   *render.Renderer
	isAdmin  func(externalID string) bool
	handlers map[string]handler
}

func NewDispatcher(engine Engine, r *render.Renderer, isAdmin func(externalID string) bool) *Dispatcher {
	if isAdmin == nil {
		isAdmin = func(string) bool { return false }
	}
	d := &Dispatcher{engine: engine, render: r, isAdmin: isAdmin}
	d.handlers = map[string]handler{
		"help":       d.help,
		"itemlist":   d.itemList,
		"itemqueue":  d.itemQueue,
		"myloot":     d.myLoot,
		"pass":       d.pass,
		"roll":       d.roll,
		"raffle":     d.raffle,
		"moveplayer": d.movePlayer,
		"bind":       d.bind,
		"additem":    d.addItem,
		"deleteitem": d.deleteItem,
		"addplayer":  d.addPlayer,
		"kickplayer": d.kickPlayer,
	}
	return d
}

// Admin reports whether the caller may run guild master commands.
func (d *Dispatcher) Admin(inv Invocation) bool {
	return inv.CallerAdmin || d.isAdmin(inv.CallerID)
}

// Execute runs one command and renders its reply. Caller mistakes come back
// as a "❌" message with Response.Err set; nothing is returned to the caller
// for store failures beyond a generic message.
func (d *Dispatcher) Execute(ctx context.Context, inv Invocation) Response {
	def, ok := Lookup(inv.Command)
	h := d.handlers[inv.Command]
	if !ok || h == nil {
		metrics.ObserveCommand("unknown", ErrUnknownCommand, ErrUnknownCommand)
		return Response{Pages: []string{render.Invalid(fmt.Sprintf("unknown command '%s'", inv.Command))}, Ephemeral: true, Err: ErrUnknownCommand}
	}

	if def.Admin && !d.Admin(inv) {
		logger.From(ctx).Warn("Permission denied", zap.String("command", inv.Command), zap.String("callerID", inv.CallerID))
		metrics.ObserveCommand(inv.Command, ErrPermissionDenied, ErrPermissionDenied)
		return Response{Pages: []string{render.PermissionDenied}, Ephemeral: true, Err: ErrPermissionDenied}
	}
	for _, o := range def.Options {
		if o.Required && inv.arg(o.Name) == "" {
			err := fmt.Errorf("%w: %s", ErrMissingOption, o.Name)
			metrics.ObserveCommand(inv.Command, err, ErrMissingOption)
			return Response{Pages: []string{render.Invalid(fmt.Sprintf("missing required option '%s'", o.Name))}, Ephemeral: true, Err: err}
		}
	}

	msg, err := h(ctx, inv)
	metrics.ObserveCommand(inv.Command, err, rejected...)
	if err != nil {
		return Response{Pages: []string{d.failure(ctx, inv, err)}, Err: err}
	}
	resp := reply(msg)
	resp.Ephemeral = inv.Command == "myloot"
	return resp
}

var rejected = []error{
	service.ErrNotFound, service.ErrDuplicateItem, service.ErrDuplicateMember,
	service.ErrOutOfRange, service.ErrInvalidArgument,
}

// failure turns an engine error into the message shown to the caller.
func (d *Dispatcher) failure(ctx context.Context, inv Invocation, err error) string {
	var rangeErr *service.RangeError
	var notFound *service.NotFoundError
	switch {
	case errors.As(err, &rangeErr):
		return render.OutOfRange(rangeErr.Max)
	case errors.Is(err, service.ErrNotQueued):
		return render.NotQueued(memberRef(inv), inv.arg(ArgItem))
	case errors.As(err, &notFound):
		if notFound.Kind == "item" {
			return render.ItemNotFound(notFound.Ref)
		}
		if inv.Command == "raffle" {
			return render.NoRaffle
		}
		if notFound.Ref == inv.arg(ArgMember) {
			return render.MemberNotFound(memberRef(inv))
		}
		return render.MemberNotFound(notFound.Ref)
	case errors.Is(err, service.ErrDuplicateItem):
		return render.DuplicateItem(detail(err, service.ErrDuplicateItem))
	case errors.Is(err, service.ErrDuplicateMember):
		return render.DuplicateMember(detail(err, service.ErrDuplicateMember))
	case errors.Is(err, service.ErrInvalidArgument):
		return render.Invalid(strings.TrimSuffix(err.Error(), ": "+service.ErrInvalidArgument.Error()))
	default:
		logger.From(ctx).Error("Command failed", zap.String("command", inv.Command), zap.String("callerID", inv.CallerID), zap.Error(err))
		return render.InternalError
	}
}

// detail strips the sentinel prefix from "sentinel: detail" errors.
func detail(err, sentinel error) string {
	msg := err.Error()
	if i := strings.Index(msg, sentinel.Error()+": "); i >= 0 {
		return msg[i+len(sentinel.Error())+2:]
	}
	return msg
}

// memberRef is the best name for the target member: its display name when the
// transport supplied one.
func memberRef(inv Invocation) string {
	if name := inv.arg(ArgMemberName); name != "" {
		return name
	}
	return inv.arg(ArgMember)
}

func (d *Dispatcher) help(_ context.Context, inv Invocation) (string, error) {
	return HelpText(d.Admin(inv)), nil
}

func (d *Dispatcher) itemList(ctx context.Context, _ Invocation) (string, error) {
	out, found, err := d.render.ItemList(d.engine.ListAll(ctx))
	if err != nil {
		return "", err
	}
	if !found {
		return render.NoItems, nil
	}
	return out, nil
}

func (d *Dispatcher) itemQueue(ctx context.Context, inv Invocation) (string, error) {
	q, err := d.engine.ListForItem(ctx, inv.arg(ArgItem))
	if err != nil {
		return "", err
	}
	return d.render.ItemQueue(q), nil
}

func (d *Dispatcher) myLoot(ctx context.Context, inv Invocation) (string, error) {
	loot, err := d.engine.ListForMember(ctx, inv.CallerID)
	if err != nil {
		var notFound *service.NotFoundError
		if errors.As(err, &notFound) {
			return "", &service.NotFoundError{Kind: "member", Ref: inv.CallerName}
		}
		return "", err
	}
	return d.render.MemberLoot(loot), nil
}

func (d *Dispatcher) pass(ctx context.Context, inv Invocation) (string, error) {
	c, err := d.engine.PassItem(ctx, inv.arg(ArgItem), inv.arg(ArgMember))
	if err != nil {
		return "", err
	}
	return render.Passed(c), nil
}

func (d *Dispatcher) roll(_ context.Context, inv Invocation) (string, error) {
	return render.Rolled(inv.CallerName, d.engine.Roll()), nil
}

func (d *Dispatcher) raffle(ctx context.Context, _ Invocation) (string, error) {
	winner, err := d.engine.Raffle(ctx)
	if err != nil {
		return "", err
	}
	return render.RaffleWinner(winner), nil
}

func (d *Dispatcher) movePlayer(ctx context.Context, inv Invocation) (string, error) {
	pos, err := strconv.Atoi(inv.arg(ArgPosition))
	if err != nil {
		return "", fmt.Errorf("position must be a whole number: %w", service.ErrInvalidArgument)
	}
	c, err := d.engine.MovePosition(ctx, inv.arg(ArgItem), inv.arg(ArgMember), pos)
	if err != nil {
		return "", err
	}
	return render.Moved(c), nil
}

func (d *Dispatcher) bind(ctx context.Context, inv Invocation) (string, error) {
	c, err := d.engine.BindItem(ctx, inv.arg(ArgItem), inv.arg(ArgMember))
	if err != nil {
		return "", err
	}
	return render.Bound(c), nil
}

func (d *Dispatcher) addItem(ctx context.Context, inv Invocation) (string, error) {
	q, err := d.engine.AddItem(ctx, inv.arg(ArgItem))
	if err != nil {
		return "", err
	}
	return d.render.SeededQueue(q), nil
}

func (d *Dispatcher) deleteItem(ctx context.Context, inv Invocation) (string, error) {
	item, err := d.engine.DeleteItem(ctx, inv.arg(ArgItem))
	if err != nil {
		return "", err
	}
	return render.ItemDeleted(item), nil
}

func (d *Dispatcher) addPlayer(ctx context.Context, inv Invocation) (string, error) {
	name := inv.arg(ArgUsername)
	if name == "" {
		name = inv.arg(ArgMemberName)
	}
	m, queues, err := d.engine.AddMember(ctx, name, inv.arg(ArgMember))
	if err != nil {
		return "", err
	}
	return render.MemberAdded(m, queues), nil
}

func (d *Dispatcher) kickPlayer(ctx context.Context, inv Invocation) (string, error) {
	m, err := d.engine.DeleteMember(ctx, inv.arg(ArgMember))
	if err != nil {
		return "", err
	}
	return render.MemberKicked(m), nil
}
