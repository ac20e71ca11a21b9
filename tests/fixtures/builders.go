package fixtures

import (
	"time"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/core/entities"
)

// FixedTime is the creation time used by builders unless overridden
var FixedTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// ModuleBuilder helps create test modules with default values
type ModuleBuilder struct {
	id         string
	title      string
	tags       []string
	difficulty entities.Difficulty
	blocks     []entities.ContentBlock
}

func NewModuleBuilder(id string) *ModuleBuilder {
	return &ModuleBuilder{
		id:         id,
		title:      "Module " + id,
		tags:       []string{},
		difficulty: entities.NumericDifficulty(1),
	}
}

func (b *ModuleBuilder) WithTitle(title string) *ModuleBuilder {
	b.title = title
	return b
}

func (b *ModuleBuilder) WithTags(tags ...string) *ModuleBuilder {
	b.tags = tags
	return b
}

func (b *ModuleBuilder) WithDifficulty(level float64) *ModuleBuilder {
	b.difficulty = entities.NumericDifficulty(level)
	return b
}

func (b *ModuleBuilder) WithDifficultyLabel(label string) *ModuleBuilder {
	b.difficulty = entities.LabeledDifficulty(label)
	return b
}

func (b *ModuleBuilder) WithBlocks(types ...string) *ModuleBuilder {
	b.blocks = b.blocks[:0]
	for i, t := range types {
		b.blocks = append(b.blocks, entities.ContentBlock{ID: b.id + "-block-" + string(rune('a'+i)), Type: t})
	}
	return b
}

func (b *ModuleBuilder) Build() entities.ContentModule {
	return entities.ContentModule{
		ID:     b.id,
		Title:  b.title,
		Blocks: append([]entities.ContentBlock{}, b.blocks...),
		Metadata: entities.ModuleMetadata{
			Tags:       append([]string{}, b.tags...),
			Difficulty: b.difficulty,
		},
	}
}

// Modules builds plain modules for each id
func Modules(ids ...string) []entities.ContentModule {
	out := make([]entities.ContentModule, 0, len(ids))
	for _, id := range ids {
		out = append(out, NewModuleBuilder(id).Build())
	}
	return out
}

// LinkBuilder helps create test links
type LinkBuilder struct {
	link entities.ContentLink
}

func NewLinkBuilder(sourceID, targetID string) *LinkBuilder {
	return &LinkBuilder{link: entities.ContentLink{
		SourceID: sourceID,
		TargetID: targetID,
		Type:     entities.RelationshipRelated,
		Strength: 1.0,
		Metadata: entities.LinkMetadata{Created: FixedTime, CreatedBy: "test"},
	}}
}

func (b *LinkBuilder) WithType(t entities.RelationshipType) *LinkBuilder {
	b.link.Type = t
	return b
}

func (b *LinkBuilder) WithStrength(s float64) *LinkBuilder {
	b.link.Strength = s
	return b
}

func (b *LinkBuilder) WithID(id string) *LinkBuilder {
	b.link.ID = id
	return b
}

func (b *LinkBuilder) WithCreated(at time.Time) *LinkBuilder {
	b.link.Metadata.Created = at
	return b
}

func (b *LinkBuilder) Automatic() *LinkBuilder {
	b.link.Metadata.Automatic = true
	return b
}

func (b *LinkBuilder) Build() entities.ContentLink {
	if b.link.ID == "" {
		b.link.ID = entities.NewLinkID(b.link.SourceID, b.link.TargetID, b.link.Type, b.link.Metadata.Created, b.link.Metadata.Automatic)
	}
	return b.link
}

// Prerequisite builds a prerequisite link meaning "from" must precede "to"
func Prerequisite(from, to string) entities.ContentLink {
	return NewLinkBuilder(from, to).WithType(entities.RelationshipPrerequisite).Build()
}

// PrerequisiteChain builds links ids[0] -> ids[1] -> ... -> ids[n-1]
func PrerequisiteChain(ids ...string) []entities.ContentLink {
	links := make([]entities.ContentLink, 0, len(ids))
	for i := 0; i+1 < len(ids); i++ {
		links = append(links, Prerequisite(ids[i], ids[i+1]))
	}
	return links
}
