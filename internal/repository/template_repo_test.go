package repository

import (
	"context"
	"errors"
	"testing"

	"BedrockMinutes/internal/model"
)

func TestTemplateGetDefaultWithoutSeed(t *testing.T) {
	repo := NewTemplateRepository(newMemStore())

	// 存储为空时默认模板依然可用
	tmpl, err := repo.Get(context.Background(), model.DefaultTemplateID)
	if err != nil {
		t.Fatalf("get default: %v", err)
	}
	if tmpl.ID != model.DefaultTemplateID || !tmpl.IsDefault {
		t.Fatalf("unexpected template: %+v", tmpl)
	}
}

func TestTemplateGetUnknown(t *testing.T) {
	repo := NewTemplateRepository(newMemStore())
	if _, err := repo.Get(context.Background(), "nope"); !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("err = %v, want ErrTemplateNotFound", err)
	}
}

func TestEnsureDefaultIdempotent(t *testing.T) {
	store := newMemStore()
	repo := NewTemplateRepository(store)
	ctx := context.Background()

	if err := repo.EnsureDefault(ctx); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	seeded := store.objects["templates/default.json"]
	if len(seeded) == 0 {
		t.Fatal("default template not written")
	}

	if err := repo.EnsureDefault(ctx); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if string(store.objects["templates/default.json"]) != string(seeded) {
		t.Fatal("second ensure must not rewrite the template")
	}
}

func TestTemplateSaveValidates(t *testing.T) {
	repo := NewTemplateRepository(newMemStore())
	bad := &model.Template{ID: "bad", Name: "缺少章节"}
	if err := repo.Save(context.Background(), bad); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestTemplateListDefaultFirst(t *testing.T) {
	repo := NewTemplateRepository(newMemStore())
	ctx := context.Background()

	if err := repo.EnsureDefault(ctx); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	custom := &model.Template{
		ID:   "standup",
		Name: "站会模板",
		Structure: model.TemplateStructure{Sections: []model.TemplateSection{{
			Name:   "进展",
			Fields: []model.TemplateField{{Key: "done", Label: "已完成", Required: true}},
		}}},
	}
	if err := repo.Save(ctx, custom); err != nil {
		t.Fatalf("save custom: %v", err)
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if !list[0].IsDefault {
		t.Fatalf("default template must come first, got %s", list[0].ID)
	}
}
