package protocol

import "testing"

func TestDecodeCmdAcceptsValid(t *testing.T) {
	valid := []string{
		`{"type":"CMD","protocol_version":"1.0","op":"STATE"}`,
		`{"type":"CMD","protocol_version":"1.0","id":"c1","op":"INTERACT","loc":{"map_id":2,"event_id":7}}`,
		`{"type":"CMD","protocol_version":"1.0","op":"REGISTER_AREA","loc":{"map_id":1,"event_id":1},"min_tier":3}`,
		`{"type":"CMD","protocol_version":"1.0","op":"SHOP_SELECT","building_id":0}`,
		`{"type":"CMD","protocol_version":"1.0","op":"SHOP_QUANTITY","quantity":5}`,
		`{"type":"CMD","protocol_version":"1.0","op":"ADD_STOCK","building_id":3,"amount":2}`,
		`{"type":"CMD","protocol_version":"1.0","op":"SET_VARIABLE","variable":20,"value":9}`,
	}
	for _, raw := range valid {
		if _, err := DecodeCmd([]byte(raw)); err != nil {
			t.Fatalf("expected valid: %s: %v", raw, err)
		}
	}

	m, _ := DecodeCmd([]byte(valid[1]))
	if m.ID != "c1" || m.Op != OpInteract || m.Loc == nil || m.Loc.MapID != 2 || m.Loc.EventID != 7 {
		t.Fatalf("unexpected decode %+v", m)
	}
}

func TestDecodeCmdRejectsInvalid(t *testing.T) {
	invalid := []string{
		`not json`,
		`{"type":"ACT","protocol_version":"1.0","op":"STATE"}`,
		`{"type":"CMD","protocol_version":"1.0","op":"FLY"}`,
		`{"type":"CMD","protocol_version":"1.0","op":"INTERACT"}`,
		`{"type":"CMD","protocol_version":"1.0","op":"INTERACT","loc":{"map_id":1}}`,
		`{"type":"CMD","protocol_version":"1.0","op":"SHOP_SELECT"}`,
		`{"type":"CMD","protocol_version":"1.0","op":"SHOP_SELECT","building_id":1.5}`,
		`{"type":"CMD","protocol_version":"1.0","op":"ADD_STOCK","building_id":1}`,
		`{"type":"CMD","protocol_version":"1.0","op":"SET_TIER"}`,
		`{"type":"CMD","protocol_version":"1.0","op":"STATE","extra":true}`,
	}
	for _, raw := range invalid {
		if _, err := DecodeCmd([]byte(raw)); err == nil {
			t.Fatalf("expected rejection: %s", raw)
		}
	}
}

func TestDecodeHello(t *testing.T) {
	m, err := DecodeHello([]byte(`{"type":"HELLO","protocol_version":"1.0","client_name":"rpg"}`))
	if err != nil {
		t.Fatalf("hello: %v", err)
	}
	if m.ClientName != "rpg" {
		t.Fatalf("unexpected hello %+v", m)
	}
	if _, err := DecodeHello([]byte(`{"type":"CMD","protocol_version":"1.0"}`)); err == nil {
		t.Fatalf("expected wrong type rejected")
	}
}

func TestResultHelpers(t *testing.T) {
	cmd := CmdMsg{ID: "x", Op: OpConfirm}
	ok := OKResult(cmd, 5)
	if !ok.OK || ok.ID != "x" || ok.Op != OpConfirm || ok.Type != TypeResult {
		t.Fatalf("unexpected ok result %+v", ok)
	}
	bad := ErrResult(cmd, ErrNoPending, "nothing to confirm")
	if bad.OK || bad.Code != ErrNoPending || !IsKnownCode(bad.Code) {
		t.Fatalf("unexpected error result %+v", bad)
	}
}
