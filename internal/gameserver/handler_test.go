package gameserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/park285/chess-duel/internal/board"
	"github.com/park285/chess-duel/internal/duel"
	"github.com/park285/chess-duel/internal/msgcat"
	"github.com/park285/chess-duel/internal/rules"
	"github.com/park285/chess-duel/pkg/chessdto"
)

type sent struct {
	Event string
	Data  any
}

// recorder is an in-memory Publisher.
type recorder struct {
	mu    sync.Mutex
	rooms map[string]map[string]bool
	inbox map[string][]sent
}

func newRecorder() *recorder {
	return &recorder{rooms: map[string]map[string]bool{}, inbox: map[string][]sent{}}
}

func (p *recorder) Subscribe(code, connID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rooms[code] == nil {
		p.rooms[code] = map[string]bool{}
	}
	p.rooms[code][connID] = true
}

func (p *recorder) DropRoom(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.rooms, code)
}

func (p *recorder) Unicast(connID, event string, payload any) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inbox[connID] = append(p.inbox[connID], sent{event, payload})
	return true
}

func (p *recorder) Multicast(code, event string, payload any) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id := range p.rooms[code] {
		p.inbox[id] = append(p.inbox[id], sent{event, payload})
	}
	return len(p.rooms[code])
}

// take returns and clears what connID received.
func (p *recorder) take(connID string) []sent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.inbox[connID]
	delete(p.inbox, connID)
	return out
}

func (p *recorder) events(connID string) []string {
	var out []string
	for _, m := range p.take(connID) {
		out = append(out, m.Event)
	}
	return out
}

type archiveSpy struct {
	got chan duel.Snapshot
}

func (a *archiveSpy) Archive(_ context.Context, snap duel.Snapshot) error {
	a.got <- snap
	return nil
}

func newTestHandler(t *testing.T, opts ...Option) (*Handler, *recorder, *duel.Registry) {
	t.Helper()
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	reg := duel.NewRegistry()
	pub := newRecorder()
	return New(reg, pub, append([]Option{WithCatalog(cat)}, opts...)...), pub, reg
}

func envelope(t *testing.T, event string, data any) chessdto.Envelope {
	t.Helper()
	env := chessdto.Envelope{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		env.Data = raw
	}
	return env
}

func startGame(t *testing.T, h *Handler, pub *recorder) string {
	t.Helper()
	ctx := context.Background()
	h.Dispatch(ctx, "white", envelope(t, chessdto.EventCreateGame, nil))
	created := pub.take("white")
	if len(created) != 1 || created[0].Event != chessdto.EventGameCreated {
		t.Fatalf("create replies = %+v", created)
	}
	seat := created[0].Data.(chessdto.Seat)
	if seat.Color != "white" || !duel.ValidCode(seat.Code) {
		t.Fatalf("seat = %+v", seat)
	}
	h.Dispatch(ctx, "black", envelope(t, chessdto.EventJoinGame, seat.Code))
	return seat.Code
}

func move(t *testing.T, h *Handler, conn, code string, fr, fc, tr, tc int) {
	t.Helper()
	h.Dispatch(context.Background(), conn, envelope(t, chessdto.EventMakeMove, chessdto.MoveRequest{
		Code: code,
		From: chessdto.Square{Row: fr, Col: fc},
		To:   chessdto.Square{Row: tr, Col: tc},
	}))
}

func lastError(t *testing.T, msgs []sent) chessdto.DomainError {
	t.Helper()
	if len(msgs) == 0 || msgs[len(msgs)-1].Event != chessdto.EventError {
		t.Fatalf("expected error frame, got %+v", msgs)
	}
	return msgs[len(msgs)-1].Data.(chessdto.DomainError)
}

func TestJoinStartsGameForBothSeats(t *testing.T) {
	h, pub, _ := newTestHandler(t)
	code := startGame(t, h, pub)

	black := pub.take("black")
	if len(black) != 2 || black[0].Event != chessdto.EventGameJoined || black[1].Event != chessdto.EventGameStart {
		t.Fatalf("black got %+v", black)
	}
	if seat := black[0].Data.(chessdto.Seat); seat.Code != code || seat.Color != "black" {
		t.Fatalf("joined = %+v", seat)
	}
	white := pub.take("white")
	if len(white) != 1 || white[0].Event != chessdto.EventGameStart {
		t.Fatalf("white got %+v", white)
	}
	start := white[0].Data.(chessdto.GameStart)
	if start.CurrentTurn != "white" || *start.Board[7][4] != "K" || *start.Board[0][3] != "q" || start.Board[4][4] != nil {
		t.Fatalf("start payload wrong: %+v", start)
	}
}

func TestJoinErrors(t *testing.T) {
	h, pub, _ := newTestHandler(t)
	ctx := context.Background()
	h.Dispatch(ctx, "x", envelope(t, chessdto.EventJoinGame, map[string]string{"code": "NOPE00"}))
	if de := lastError(t, pub.take("x")); de.Code != "session_not_found" || de.Message != "Game not found" {
		t.Fatalf("error = %+v", de)
	}

	code := startGame(t, h, pub)
	h.Dispatch(ctx, "third", envelope(t, chessdto.EventJoinGame, code))
	if de := lastError(t, pub.take("third")); de.Code != "session_full" {
		t.Fatalf("error = %+v", de)
	}
}

func TestMoveBroadcastsToBoth(t *testing.T) {
	h, pub, _ := newTestHandler(t)
	code := startGame(t, h, pub)
	pub.take("white")
	pub.take("black")

	move(t, h, "white", code, 6, 4, 4, 4)
	w, b := pub.take("white"), pub.take("black")
	if len(w) != 1 || len(b) != 1 || w[0].Event != chessdto.EventMoveMade {
		t.Fatalf("move replies: %+v / %+v", w, b)
	}
	mm := w[0].Data.(chessdto.MoveMade)
	if mm.CurrentTurn != "black" || mm.InCheck || mm.WasCaptured {
		t.Fatalf("move-made = %+v", mm)
	}
	if mm.LastMove.From != (chessdto.Square{Row: 6, Col: 4}) || mm.LastMove.To != (chessdto.Square{Row: 4, Col: 4}) {
		t.Fatalf("lastMove = %+v", mm.LastMove)
	}
	if len(mm.CapturedPieces.White) != 0 || len(mm.CapturedPieces.Black) != 0 {
		t.Fatalf("captured = %+v", mm.CapturedPieces)
	}
}

func TestMoveRejectionsGoToRequesterOnly(t *testing.T) {
	h, pub, _ := newTestHandler(t)
	code := startGame(t, h, pub)
	pub.take("white")
	pub.take("black")

	move(t, h, "black", code, 1, 4, 3, 4)
	if de := lastError(t, pub.take("black")); de.Code != "not_your_turn" || de.Message != "It is not your turn" {
		t.Fatalf("error = %+v", de)
	}
	move(t, h, "white", code, 6, 4, 3, 4)
	if de := lastError(t, pub.take("white")); de.Code != "illegal_move" {
		t.Fatalf("error = %+v", de)
	}
	move(t, h, "white", "ZZZZZZ", 6, 4, 4, 4)
	if de := lastError(t, pub.take("white")); de.Code != "session_not_found" {
		t.Fatalf("error = %+v", de)
	}
	if got := pub.take("black"); len(got) != 0 {
		t.Fatalf("opponent saw rejections: %+v", got)
	}
}

func TestCaptureReportsCapturedPieces(t *testing.T) {
	h, pub, _ := newTestHandler(t)
	code := startGame(t, h, pub)
	move(t, h, "white", code, 6, 4, 4, 4)
	move(t, h, "black", code, 1, 3, 3, 3)
	pub.take("black")
	pub.take("white")
	move(t, h, "white", code, 4, 4, 3, 3)

	mm := pub.take("black")[0].Data.(chessdto.MoveMade)
	if !mm.WasCaptured || len(mm.CapturedPieces.Black) != 1 || mm.CapturedPieces.Black[0] != "p" {
		t.Fatalf("capture payload = %+v", mm)
	}
}

func TestFoolsMateEndsAndArchives(t *testing.T) {
	spy := &archiveSpy{got: make(chan duel.Snapshot, 1)}
	h, pub, _ := newTestHandler(t, WithArchiver(spy))
	code := startGame(t, h, pub)
	move(t, h, "white", code, 6, 5, 5, 5)
	move(t, h, "black", code, 1, 4, 3, 4)
	move(t, h, "white", code, 6, 6, 4, 6)
	pub.take("white")
	pub.take("black")
	move(t, h, "black", code, 0, 3, 4, 7)

	for _, conn := range []string{"white", "black"} {
		got := pub.take(conn)
		if len(got) != 1 || got[0].Event != chessdto.EventGameOver {
			t.Fatalf("%s got %+v", conn, got)
		}
		over := got[0].Data.(chessdto.GameOver)
		if over.Winner != "black" || over.Reason != "checkmate" || *over.Board[4][7] != "q" {
			t.Fatalf("game-over = %+v", over)
		}
	}

	select {
	case snap := <-spy.got:
		if snap.Code != code || snap.Winner != rules.WinnerBlack || len(snap.History) != 4 {
			t.Fatalf("archived %+v", snap)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("game was not archived")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := h.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	move(t, h, "white", code, 6, 0, 5, 0)
	if de := lastError(t, pub.take("white")); de.Code != "not_your_turn" {
		t.Fatalf("finished game accepted a move: %+v", de)
	}
}

func TestRestart(t *testing.T) {
	h, pub, reg := newTestHandler(t)
	code := startGame(t, h, pub)
	move(t, h, "white", code, 6, 4, 4, 4)
	pub.take("white")
	pub.take("black")

	h.Dispatch(context.Background(), "black", envelope(t, chessdto.EventRestartGame, code))
	for _, conn := range []string{"white", "black"} {
		got := pub.take(conn)
		if len(got) != 1 || got[0].Event != chessdto.EventGameRestarted {
			t.Fatalf("%s got %+v", conn, got)
		}
		r := got[0].Data.(chessdto.GameRestarted)
		if r.CurrentTurn != "white" || *r.Board[6][4] != "P" || r.Board[4][4] != nil {
			t.Fatalf("restart payload = %+v", r)
		}
	}
	snap, _ := reg.Get(code)
	if snap.Board != board.Initial() || len(snap.History) != 0 {
		t.Fatalf("session not reset")
	}

	h.Dispatch(context.Background(), "black", envelope(t, chessdto.EventRestartGame, "ZZZZZZ"))
	if got := pub.take("black"); len(got) != 0 {
		t.Fatalf("unknown restart answered: %+v", got)
	}
}

func TestDisconnectNotifiesOpponent(t *testing.T) {
	h, pub, reg := newTestHandler(t)
	code := startGame(t, h, pub)
	pub.take("white")
	pub.take("black")

	h.Disconnect(context.Background(), "white")
	got := pub.take("black")
	if len(got) != 1 || got[0].Event != chessdto.EventPlayerDisconnected {
		t.Fatalf("black got %+v", got)
	}
	if _, err := reg.Get(code); err == nil {
		t.Fatalf("session survived disconnect")
	}
	if len(pub.rooms[code]) != 0 {
		t.Fatalf("room not dropped")
	}
	h.Disconnect(context.Background(), "black")
	if got := pub.take("white"); len(got) != 0 {
		t.Fatalf("second disconnect produced frames: %+v", got)
	}
}

func TestDisconnectOfWaitingCreator(t *testing.T) {
	h, pub, reg := newTestHandler(t)
	h.Dispatch(context.Background(), "solo", envelope(t, chessdto.EventCreateGame, nil))
	pub.take("solo")
	h.Disconnect(context.Background(), "solo")
	if st := reg.Stats(); st.Sessions != 0 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestBadRequests(t *testing.T) {
	h, pub, _ := newTestHandler(t)
	ctx := context.Background()

	h.Dispatch(ctx, "x", envelope(t, "castle", nil))
	if de := lastError(t, pub.take("x")); de.Code != "bad_request" || de.Message != "Malformed request for castle" {
		t.Fatalf("error = %+v", de)
	}
	h.Dispatch(ctx, "x", envelope(t, chessdto.EventJoinGame, nil))
	if de := lastError(t, pub.take("x")); de.Code != "bad_request" {
		t.Fatalf("error = %+v", de)
	}
	h.Dispatch(ctx, "x", chessdto.Envelope{Event: chessdto.EventMakeMove, Data: json.RawMessage(`{"code":"AB12CD","from":"e2"}`)})
	if de := lastError(t, pub.take("x")); de.Code != "bad_request" {
		t.Fatalf("error = %+v", de)
	}
}

func TestCatalogOverrideLocalisesErrors(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "fr.yaml"), []byte("errors:\n  not_your_turn: \"Ce n'est pas votre tour\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cat, err := msgcat.New(dir)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	h, pub, _ := newTestHandler(t, WithCatalog(cat))
	code := startGame(t, h, pub)
	move(t, h, "black", code, 1, 4, 3, 4)
	if de := lastError(t, pub.take("black")); de.Message != "Ce n'est pas votre tour" {
		t.Fatalf("message = %q", de.Message)
	}
}
