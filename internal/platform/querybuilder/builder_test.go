package querybuilder

import "testing"

func TestSelectBuilder(t *testing.T) {
	query, args, err := Select("id", "role", "content").
		From("conversation_turns").
		Where(Eq("session_id", "s1"), IsNull("deleted_at")).
		OrderBy("seq").
		Limit(50).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT id, role, content FROM conversation_turns WHERE session_id = $1 AND deleted_at IS NULL ORDER BY seq LIMIT 50"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 1 || args[0] != "s1" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilder_GroupBy(t *testing.T) {
	query, args, err := Select("session_id", "COUNT(*) AS turn_count").
		From("conversation_turns").
		Where(In("session_id", []any{"s1", "s2"})).
		GroupBy("session_id").
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT session_id, COUNT(*) AS turn_count FROM conversation_turns WHERE session_id IN ($1, $2) GROUP BY session_id"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "s1" || args[1] != "s2" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilder(t *testing.T) {
	query, args, err := InsertInto("conversation_sessions").
		Columns("id", "manager_id").
		Values("s1", int64(1178124)).
		Suffix("ON CONFLICT (id) DO NOTHING").
		ToSQL()
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := "INSERT INTO conversation_sessions (id, manager_id) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "s1" || args[1] != int64(1178124) {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilder_RowWidthMismatch(t *testing.T) {
	_, _, err := InsertInto("conversation_turns").
		Columns("id", "session_id", "role").
		Values("t1", "s1").
		ToSQL()
	if err == nil {
		t.Fatal("expected row width error")
	}
}

func TestUpdateBuilder(t *testing.T) {
	query, args, err := Update("conversation_sessions").
		Set("turn_count", 6).
		SetExpr("updated_at", "NOW()").
		Where(Eq("id", "s1")).
		ToSQL()
	if err != nil {
		t.Fatalf("build update query: %v", err)
	}

	wantQuery := "UPDATE conversation_sessions SET turn_count = $1, updated_at = NOW() WHERE id = $2"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != 6 || args[1] != "s1" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestDeleteBuilder(t *testing.T) {
	query, args, err := DeleteFrom("conversation_turns").
		Where(Lt("created_at", "2026-01-01")).
		ToSQL()
	if err != nil {
		t.Fatalf("build delete query: %v", err)
	}

	wantQuery := "DELETE FROM conversation_turns WHERE created_at < $1"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 1 || args[0] != "2026-01-01" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestDeleteBuilder_RequiresConditions(t *testing.T) {
	_, _, err := DeleteFrom("conversation_turns").ToSQL()
	if err == nil {
		t.Fatal("expected missing conditions error")
	}
}

func TestInsertModel(t *testing.T) {
	type turnModel struct {
		ID        string `db:"id"`
		SessionID string `db:"session_id"`
		Role      string `db:"role"`
		Content   string `db:"content"`
		Ignored   string `db:"-"`
	}

	query, args, err := InsertModel("conversation_turns", &turnModel{
		ID:        "t1",
		SessionID: "s1",
		Role:      "user",
		Content:   "who should I captain?",
	}, "")
	if err != nil {
		t.Fatalf("build insert from model: %v", err)
	}

	wantQuery := "INSERT INTO conversation_turns (id, session_id, role, content) VALUES ($1, $2, $3, $4)"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 4 || args[2] != "user" {
		t.Fatalf("unexpected args: %+v", args)
	}
}
