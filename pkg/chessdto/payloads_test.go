package chessdto

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestCodeRequestAcceptsBothShapes(t *testing.T) {
	for _, raw := range []string{`"AB12CD"`, `{"code":"AB12CD"}`, `" AB12CD "`} {
		var req CodeRequest
		if err := json.Unmarshal([]byte(raw), &req); err != nil {
			t.Fatalf("%s: %v", raw, err)
		}
		if req.Code != "AB12CD" {
			t.Fatalf("%s: code = %q", raw, req.Code)
		}
	}
	var req CodeRequest
	if err := json.Unmarshal([]byte(`42`), &req); err == nil {
		t.Fatalf("number accepted as code")
	}
	if err := (CodeRequest{}).Validate(); !errors.Is(err, ErrEmptyCode) {
		t.Fatalf("blank code validated: %v", err)
	}
}

func TestBoardWireShape(t *testing.T) {
	var b Board
	k := "K"
	b[7][4] = &k
	raw, err := json.Marshal(GameStart{Board: b, CurrentTurn: "white"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(raw)
	if !strings.HasPrefix(s, `{"board":[[null,null,null,null,null,null,null,null],`) {
		t.Fatalf("unexpected encoding %s", s)
	}
	if !strings.Contains(s, `[null,null,null,null,"K",null,null,null]],"currentTurn":"white"}`) {
		t.Fatalf("unexpected encoding %s", s)
	}
}

func TestEnvelopeDecode(t *testing.T) {
	var env Envelope
	if err := json.Unmarshal([]byte(`{"event":"make-move","data":{"code":"AB12CD","from":{"row":6,"col":4},"to":{"row":4,"col":4}}}`), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	var mv MoveRequest
	if err := json.Unmarshal(env.Data, &mv); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if env.Event != EventMakeMove || mv.Code != "AB12CD" || mv.From != (Square{6, 4}) || mv.To != (Square{4, 4}) {
		t.Fatalf("decoded %+v %+v", env, mv)
	}
}
