package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/quaynav/quay/internal/model"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := InitDB(filepath.Join(t.TempDir(), "quay.db"))
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMenuCRUD(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	id, err := db.CreateMenu(ctx, model.Menu{Name: "Dev", Icon: "code", SortOrder: 1})
	if err != nil {
		t.Fatalf("CreateMenu: %v", err)
	}

	menus, err := db.ListMenus(ctx)
	if err != nil {
		t.Fatalf("ListMenus: %v", err)
	}
	if len(menus) != 1 || menus[0].Name != "Dev" {
		t.Fatalf("ListMenus = %+v", menus)
	}

	if err := db.UpdateMenu(ctx, model.Menu{ID: id, Name: "Development", SortOrder: 2}); err != nil {
		t.Fatalf("UpdateMenu: %v", err)
	}
	menus, _ = db.ListMenus(ctx)
	if menus[0].Name != "Development" || menus[0].SortOrder != 2 {
		t.Errorf("after update: %+v", menus[0])
	}

	if err := db.DeleteMenu(ctx, id); err != nil {
		t.Fatalf("DeleteMenu: %v", err)
	}
	if err := db.DeleteMenu(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}

func TestCardsCascadeWithMenu(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	menuID, err := db.CreateMenu(ctx, model.Menu{Name: "Media"})
	if err != nil {
		t.Fatalf("CreateMenu: %v", err)
	}
	if _, err := db.CreateCard(ctx, model.Card{MenuID: menuID, Title: "Jellyfin", URL: "http://jf.local"}); err != nil {
		t.Fatalf("CreateCard: %v", err)
	}

	cards, err := db.ListCards(ctx, menuID)
	if err != nil {
		t.Fatalf("ListCards: %v", err)
	}
	if len(cards) != 1 {
		t.Fatalf("cards = %+v", cards)
	}

	if err := db.DeleteMenu(ctx, menuID); err != nil {
		t.Fatalf("DeleteMenu: %v", err)
	}
	cards, _ = db.ListCards(ctx, 0)
	if len(cards) != 0 {
		t.Errorf("cards survived menu delete: %+v", cards)
	}
}

func TestTagUniqueness(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if _, err := db.CreateTag(ctx, model.Tag{Name: "selfhosted", Color: "#00aa00"}); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	if _, err := db.CreateTag(ctx, model.Tag{Name: "selfhosted"}); err == nil {
		t.Fatal("duplicate tag accepted")
	}
}
