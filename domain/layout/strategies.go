package layout

import (
	"math"
	"sort"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/core/entities"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/core/valueobjects"
)

// hierarchical stacks BFS levels of the prerequisite graph top to bottom
func hierarchical(nodes []VisualNode, edges []entities.ContentLink, cfg Config) {
	levels, _, _ := bfsLevels(nodes, edges)

	byLevel := make(map[int][]int)
	maxLevel := 0
	for i, n := range nodes {
		lvl := levels[n.ID]
		byLevel[lvl] = append(byLevel[lvl], i)
		if lvl > maxLevel {
			maxLevel = lvl
		}
	}

	for lvl := 0; lvl <= maxLevel; lvl++ {
		members := byLevel[lvl]
		step := cfg.Width / float64(len(members)+1)
		for pos, i := range members {
			level := lvl
			nodes[i].Level = &level
			nodes[i].Position = valueobjects.Position{
				X: step * float64(pos+1),
				Y: margin + float64(lvl)*cfg.LevelSpacing,
			}
		}
	}
}

// circular places nodes evenly on a circle around the canvas center
func circular(nodes []VisualNode, cfg Config) {
	cx, cy := cfg.Width/2, cfg.Height/2
	radius := 0.4 * math.Min(cfg.Width, cfg.Height)
	n := float64(len(nodes))
	for i := range nodes {
		angle := 2 * math.Pi * float64(i) / n
		nodes[i].Position = valueobjects.Position{
			X: cx + radius*math.Cos(angle),
			Y: cy + radius*math.Sin(angle),
		}
	}
}

// grid fills a ceil(sqrt(n)) column grid across the canvas
func grid(nodes []VisualNode, cfg Config) {
	cols := int(math.Ceil(math.Sqrt(float64(len(nodes)))))
	rows := (len(nodes) + cols - 1) / cols
	cellW := cfg.Width / float64(cols)
	cellH := cfg.Height / float64(rows)
	for i := range nodes {
		col, row := i%cols, i/cols
		nodes[i].Position = valueobjects.Position{
			X: cellW * (float64(col) + 0.5),
			Y: cellH * (float64(row) + 0.5),
		}
	}
}

// tree lays out the BFS spanning forest of the prerequisite graph. Every
// subtree receives horizontal space proportional to its leaf count and each
// parent sits centered over its children.
func tree(nodes []VisualNode, edges []entities.ContentLink, cfg Config) {
	levels, parent, roots := bfsLevels(nodes, edges)
	idx := indexByID(nodes)

	kids := make(map[string][]string)
	for child, p := range parent {
		kids[p] = append(kids[p], child)
	}
	for p := range kids {
		sort.Strings(kids[p])
	}

	// leaf counts, children before parents
	order := make([]string, 0, len(nodes))
	for _, root := range roots {
		stack := []string{root}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			order = append(order, cur)
			stack = append(stack, kids[cur]...)
		}
	}
	leaves := make(map[string]int, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		if len(kids[id]) == 0 {
			leaves[id] = 1
			continue
		}
		for _, k := range kids[id] {
			leaves[id] += leaves[k]
		}
	}

	total := 0
	for _, root := range roots {
		total += leaves[root]
	}
	unit := cfg.Width / float64(total)

	type span struct {
		id   string
		left float64
	}
	var queue []span
	left := 0.0
	for _, root := range roots {
		queue = append(queue, span{id: root, left: left})
		left += float64(leaves[root]) * unit
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		width := float64(leaves[cur.id]) * unit
		level := levels[cur.id]
		i := idx[cur.id]
		nodes[i].Level = &level
		nodes[i].Position = valueobjects.Position{
			X: cur.left + width/2,
			Y: margin + float64(level)*cfg.LevelSpacing,
		}
		childLeft := cur.left
		for _, k := range kids[cur.id] {
			queue = append(queue, span{id: k, left: childLeft})
			childLeft += float64(leaves[k]) * unit
		}
	}
}
