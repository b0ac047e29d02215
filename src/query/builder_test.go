package query_test

import (
	"testing"

	"github.com/quillsql/quill/src/query"
)

func TestSelectStar(t *testing.T) {
	expectSQL(t, newBuilder(t).From("users"), `select * from "users"`)
}

func TestSelectColumnsAndAlias(t *testing.T) {
	b := newBuilder(t).From("users").Select("id", "name as n", "users.email")
	expectSQL(t, b, `select "id", "name" as "n", "users"."email" from "users"`)
}

func TestSelectDistinct(t *testing.T) {
	b := newBuilder(t).From("users").Distinct().Select("kind")
	expectSQL(t, b, `select distinct "kind" from "users"`)
}

func TestAddSelect(t *testing.T) {
	b := newBuilder(t).From("users").Select("id").AddSelect("name")
	expectSQL(t, b, `select "id", "name" from "users"`)
}

func TestFromAlias(t *testing.T) {
	b := newBuilder(t).From("users", "u").Select("u.id")
	expectSQL(t, b, `select "u"."id" from "users" as "u"`)
}

func TestWhereBasic(t *testing.T) {
	b := newBuilder(t).From("users").Where("id", 1)
	expectSQL(t, b, `select * from "users" where "id" = ?`, 1)
}

func TestWhereOperatorInference(t *testing.T) {
	b := newBuilder(t).From("users").Where("votes", ">=", 100).OrWhere("name", "john")
	expectSQL(t, b, `select * from "users" where "votes" >= ? or "name" = ?`, 100, "john")
}

func TestWhereNilValue(t *testing.T) {
	b := newBuilder(t).From("users").Where("deleted_at", nil).Where("banned_at", "!=", nil)
	expectSQL(t, b, `select * from "users" where "deleted_at" is null and "banned_at" is not null`)
}

func TestWhereNot(t *testing.T) {
	b := newBuilder(t).From("users").Where("id", 1).WhereNot("admin", true)
	expectSQL(t, b, `select * from "users" where "id" = ? and not ("admin" = ?)`, 1, true)
}

func TestWhereNestedGroup(t *testing.T) {
	b := newBuilder(t).From("users").
		Where("active", true).
		OrWhere(func(q *query.Builder) {
			q.Where("votes", ">", 100).Where("title", "!=", "Admin")
		})
	expectSQL(t, b,
		`select * from "users" where "active" = ? or ("votes" > ? and "title" != ?)`,
		true, 100, "Admin")
}

func TestWhereEmptyClosureIsDropped(t *testing.T) {
	b := newBuilder(t).From("users").Where("id", 1).Where(func(q *query.Builder) {})
	expectSQL(t, b, `select * from "users" where "id" = ?`, 1)
}

func TestWhereBetween(t *testing.T) {
	b := newBuilder(t).From("users").WhereBetween("votes", 1, 100)
	expectSQL(t, b, `select * from "users" where "votes" between ? and ?`, 1, 100)
}

func TestWhereColumn(t *testing.T) {
	b := newBuilder(t).From("users").WhereColumn("updated_at", ">", "created_at")
	expectSQL(t, b, `select * from "users" where "updated_at" > "created_at"`)
}

func TestWhereRawBindingOrder(t *testing.T) {
	b := newBuilder(t).From("users").
		Where("id", 1).
		WhereRaw("lower(name) = ?", "john").
		Where("active", true)
	expectSQL(t, b,
		`select * from "users" where "id" = ? and lower(name) = ? and "active" = ?`,
		1, "john", true)
}

func TestWhereSubquery(t *testing.T) {
	b := newBuilder(t).From("users").
		Where("salary", ">=", func(q *query.Builder) {
			q.From("salaries").SelectRaw("avg(amount)").Where("year", 2025)
		})
	expectSQL(t, b,
		`select * from "users" where "salary" >= (select avg(amount) from "salaries" where "year" = ?)`,
		2025)
}

func TestWhereInSubquery(t *testing.T) {
	sub := newBuilder(t).From("orders").Select("user_id").Where("total", ">", 50)
	b := newBuilder(t).From("users").Where("active", true).WhereIn("id", sub)
	expectSQL(t, b,
		`select * from "users" where "active" = ? and "id" in (select "user_id" from "orders" where "total" > ?)`,
		true, 50)
}

func TestWhereExists(t *testing.T) {
	b := newBuilder(t).From("users").
		WhereExists(func(q *query.Builder) {
			q.From("orders").SelectRaw("1").WhereColumn("orders.user_id", "users.id")
		})
	expectSQL(t, b,
		`select * from "users" where exists (select 1 from "orders" where "orders"."user_id" = "users"."id")`)
}

func TestWhereExpressionValueNotBound(t *testing.T) {
	b := newBuilder(t).From("users").Where("created_at", ">=", query.Raw("now()"))
	expectSQL(t, b, `select * from "users" where "created_at" >= now()`)
}

func TestGroupByHaving(t *testing.T) {
	b := newBuilder(t).From("orders").
		Select("account_id").
		GroupBy("account_id").
		Having("account_id", ">", 100)
	expectSQL(t, b,
		`select "account_id" from "orders" group by "account_id" having "account_id" > ?`,
		100)
}

func TestHavingResolvesRawSelectAlias(t *testing.T) {
	b := newBuilder(t).From("orders").
		SelectRaw("count(*) as order_count").
		GroupBy("account_id").
		Having("order_count", ">", 3)
	expectSQL(t, b,
		`select count(*) as order_count from "orders" group by "account_id" having count(*) > ?`,
		3)
}

func TestHavingSkipsPlaceholderAlias(t *testing.T) {
	// An aliased placeholder expression is not replayable in having; the
	// alias must compile as a plain column with the binding order intact.
	b := newBuilder(t).From("orders").
		SelectRaw("? as marker", "x").
		GroupBy("account_id").
		Having("marker", ">", 3)
	expectSQL(t, b,
		`select ? as marker from "orders" group by "account_id" having "marker" > ?`,
		"x", 3)
}

func TestOrderByMultiple(t *testing.T) {
	b := newBuilder(t).From("users").OrderBy("name").OrderByDesc("created_at")
	expectSQL(t, b, `select * from "users" order by "name" asc, "created_at" desc`)
}

func TestReorderDropsOrderBindings(t *testing.T) {
	b := newBuilder(t).From("users").
		Where("id", 1).
		OrderByRaw("case when id = ? then 0 else 1 end", 5)
	b.Reorder("name")
	expectSQL(t, b, `select * from "users" where "id" = ? order by "name" asc`, 1)
}

func TestLimitOffset(t *testing.T) {
	b := newBuilder(t).From("users").Limit(10).Offset(20)
	expectSQL(t, b, `select * from "users" limit 10 offset 20`)
}

func TestForPage(t *testing.T) {
	b := newBuilder(t).From("users").ForPage(3, 15)
	expectSQL(t, b, `select * from "users" limit 15 offset 30`)
}

func TestJoinOn(t *testing.T) {
	b := newBuilder(t).From("users").
		Select("users.*", "contacts.phone").
		Join("contacts", "users.id", "=", "contacts.user_id")
	expectSQL(t, b,
		`select "users".*, "contacts"."phone" from "users" inner join "contacts" on "users"."id" = "contacts"."user_id"`)
}

func TestJoinBindingsPrecedeWhereBindings(t *testing.T) {
	b := newBuilder(t).From("users").
		Where("users.active", true).
		JoinWhere("orders", "orders.status", "=", "paid")
	expectSQL(t, b,
		`select * from "users" inner join "orders" on "orders"."status" = ? where "users"."active" = ?`,
		"paid", true)
}

func TestCrossJoin(t *testing.T) {
	b := newBuilder(t).From("sizes").CrossJoin("colors")
	expectSQL(t, b, `select * from "sizes" cross join "colors"`)
}

func TestFromSub(t *testing.T) {
	b := newBuilder(t).FromSub(func(q *query.Builder) {
		q.From("orders").Select("user_id").Where("status", "paid")
	}, "paid_orders")
	expectSQL(t, b,
		`select * from (select "user_id" from "orders" where "status" = ?) as "paid_orders"`,
		"paid")
}

func TestSelectSub(t *testing.T) {
	b := newBuilder(t).From("users").
		Select("name").
		SelectSub(func(q *query.Builder) {
			q.From("orders").SelectRaw("count(*)").WhereColumn("orders.user_id", "users.id")
		}, "order_count")
	expectSQL(t, b,
		`select "name", (select count(*) from "orders" where "orders"."user_id" = "users"."id") as "order_count" from "users"`)
}

func TestUnionBindingOrder(t *testing.T) {
	b := newBuilder(t).From("users").Where("id", 1).
		UnionAll(newBuilder(t).From("users").Where("id", 2)).
		OrderBy("id")
	expectSQL(t, b,
		`select * from (select * from "users" where "id" = ?) union all select * from (select * from "users" where "id" = ?) order by "id" asc`,
		1, 2)
}

func TestCloneIsIndependent(t *testing.T) {
	original := newBuilder(t).From("users").Where("active", true)
	clone := original.Clone().Where("votes", ">", 10).OrderBy("name")

	expectSQL(t, original, `select * from "users" where "active" = ?`, true)
	expectSQL(t, clone,
		`select * from "users" where "active" = ? and "votes" > ? order by "name" asc`,
		true, 10)
}

func TestCloneWithout(t *testing.T) {
	b := newBuilder(t).From("users").Where("id", 1).OrderBy("name").Limit(5)
	stripped := b.CloneWithout("orders", "limit").CloneWithoutBindings(query.BindingOrder)
	expectSQL(t, stripped, `select * from "users" where "id" = ?`, 1)
	// The source builder keeps its clauses.
	expectSQL(t, b, `select * from "users" where "id" = ? order by "name" asc limit 5`, 1)
}

func TestToRawSQL(t *testing.T) {
	b := newBuilder(t).From("users").Where("name", "O'Brien").Where("id", 3)
	raw, err := b.ToRawSQL()
	if err != nil {
		t.Fatalf("ToRawSQL failed: %v", err)
	}
	want := `select * from "users" where "name" = 'O''Brien' and "id" = 3`
	if raw != want {
		t.Errorf("got  %s\nwant %s", raw, want)
	}
}

func TestOrderByPanicsOnBadDirection(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	newBuilder(t).From("users").OrderBy("name", "sideways")
}

func TestAddBindingPanicsOnUnknownBucket(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	newBuilder(t).AddBinding(1, "bogus")
}

func TestToSQLWithoutGrammar(t *testing.T) {
	b := query.NewBuilder(nil, nil).From("users")
	if _, err := b.ToSQL(); err == nil {
		t.Fatal("expected error without a grammar")
	}
}
