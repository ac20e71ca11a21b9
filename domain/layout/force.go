package layout

import (
	"context"
	"math"
	"math/rand"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/core/entities"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/core/valueobjects"
)

const (
	repulsionConstant  = 2000.0
	attractionConstant = 0.01
	centeringConstant  = 0.01
	damping            = 0.9
	margin             = 50.0
	minDistance        = 0.01
)

// forceDirected runs a spring simulation. Repulsion is computed for every
// pair, so cost grows quadratically with node count.
func forceDirected(ctx context.Context, nodes []VisualNode, edges []entities.ContentLink, cfg Config, rng *rand.Rand) error {
	minX, minY := margin, margin
	maxX, maxY := cfg.Width-margin, cfg.Height-margin
	if maxX < minX {
		minX, maxX = cfg.Width/2, cfg.Width/2
	}
	if maxY < minY {
		minY, maxY = cfg.Height/2, cfg.Height/2
	}
	center := valueobjects.Position{X: cfg.Width / 2, Y: cfg.Height / 2}

	velocity := make([]valueobjects.Position, len(nodes))
	force := make([]valueobjects.Position, len(nodes))
	for i := range nodes {
		nodes[i].Position = valueobjects.Position{
			X: minX + rng.Float64()*(maxX-minX),
			Y: minY + rng.Float64()*(maxY-minY),
		}
	}

	idx := indexByID(nodes)
	type spring struct {
		a, b     int
		strength float64
	}
	springs := make([]spring, 0, len(edges))
	for _, e := range edges {
		a, okA := idx[e.SourceID]
		b, okB := idx[e.TargetID]
		if !okA || !okB || a == b {
			continue
		}
		springs = append(springs, spring{a: a, b: b, strength: e.Strength})
	}

	for iter := 0; iter < cfg.Iterations; iter++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		for i := range force {
			force[i] = valueobjects.Position{}
		}

		for i := 0; i < len(nodes); i++ {
			for j := i + 1; j < len(nodes); j++ {
				delta := nodes[i].Position.Sub(nodes[j].Position)
				dist := math.Hypot(delta.X, delta.Y)
				if dist < minDistance {
					// coincident nodes get pushed apart along a fixed axis
					delta = valueobjects.Position{X: minDistance, Y: 0}
					dist = minDistance
				}
				push := delta.Scale(repulsionConstant / (dist * dist * dist))
				force[i] = force[i].Add(push)
				force[j] = force[j].Sub(push)
			}
		}

		for _, s := range springs {
			delta := nodes[s.b].Position.Sub(nodes[s.a].Position)
			dist := math.Hypot(delta.X, delta.Y)
			if dist < minDistance {
				continue
			}
			// magnitude k * strength * dist along the unit vector
			pull := delta.Scale(attractionConstant * s.strength)
			force[s.a] = force[s.a].Add(pull)
			force[s.b] = force[s.b].Sub(pull)
		}

		for i := range nodes {
			force[i] = force[i].Add(center.Sub(nodes[i].Position).Scale(centeringConstant))
			if nodes[i].Fixed {
				continue
			}
			velocity[i] = velocity[i].Add(force[i]).Scale(damping)
			nodes[i].Position = nodes[i].Position.Add(velocity[i]).Clamp(minX, minY, maxX, maxY)
		}
	}

	for i := range nodes {
		v, f := velocity[i], force[i]
		nodes[i].Velocity = &v
		nodes[i].Force = &f
	}
	return nil
}
