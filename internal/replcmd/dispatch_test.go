package replcmd

import "testing"

func TestIsMetaCommand(t *testing.T) {
	cases := map[string]bool{
		".load doc fixtures/a.json": true,
		"  .use doc":                true,
		"SELECT self.tag FROM doc":  false,
		"":                          false,
	}
	for line, want := range cases {
		if got := IsMetaCommand(line); got != want {
			t.Errorf("IsMetaCommand(%q) = %v, want %v", line, got, want)
		}
	}
}

func TestDispatch_LoadSetsActiveSource(t *testing.T) {
	sess := NewSession()
	out, err := Dispatch(".load doc fixtures/list.json", sess)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if sess.Active != "doc" {
		t.Errorf("expected active source doc, got %q", sess.Active)
	}
	if out == "" {
		t.Error("expected a non-empty confirmation message")
	}
}

func TestDispatch_UseUnknownAliasFails(t *testing.T) {
	sess := NewSession()
	_, err := Dispatch(".use missing", sess)
	if err == nil {
		t.Fatal("expected an error for an unloaded alias")
	}
}

func TestDispatch_SetColnamesRaw(t *testing.T) {
	sess := NewSession()
	if _, err := Dispatch(".set colnames raw", sess); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if sess.ColnameMode != ColnamesRaw {
		t.Errorf("expected ColnamesRaw, got %v", sess.ColnameMode)
	}
}

func TestDispatch_DescribeLastWithNoQueryYet(t *testing.T) {
	sess := NewSession()
	out, err := Dispatch(".describe last", sess)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if out != "no query has run yet" {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestDispatch_DescribeLastListsColumns(t *testing.T) {
	sess := NewSession()
	sess.LastColumns = []string{"self.tag", "a.href"}
	out, err := Dispatch(".describe last", sess)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if out != "self.tag\na.href" {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestDispatch_QuitReturnsErrQuit(t *testing.T) {
	sess := NewSession()
	_, err := Dispatch(".quit", sess)
	if err != ErrQuit {
		t.Errorf("expected ErrQuit, got %v", err)
	}
}

func TestDispatch_MalformedLineIsSyntaxError(t *testing.T) {
	sess := NewSession()
	_, err := Dispatch(".bogus thing", sess)
	if _, ok := err.(SyntaxError); !ok {
		t.Errorf("expected SyntaxError, got %T: %v", err, err)
	}
}
