package services

import (
	"sort"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/core/entities"
)

// AccessPolicy decides whether a learner who completed the given set may open nodeID
type AccessPolicy func(nodeID string, prerequisites []string, completed map[string]bool) bool

// AllowAll is the default policy: every node is reachable
func AllowAll(string, []string, map[string]bool) bool {
	return true
}

// RequireAllPrerequisites grants access once every transitive prerequisite is completed
func RequireAllPrerequisites(_ string, prerequisites []string, completed map[string]bool) bool {
	for _, p := range prerequisites {
		if !completed[p] {
			return false
		}
	}
	return true
}

// DependencyAnalyzer computes prerequisite and dependent closures over prerequisite links
type DependencyAnalyzer struct {
	maxDepth int
	policy   AccessPolicy
}

// NewDependencyAnalyzer creates an analyzer. A nil policy allows everything.
func NewDependencyAnalyzer(maxDepth int, policy AccessPolicy) *DependencyAnalyzer {
	if maxDepth <= 0 {
		maxDepth = 256
	}
	if policy == nil {
		policy = AllowAll
	}
	return &DependencyAnalyzer{maxDepth: maxDepth, policy: policy}
}

// Analyze builds the dependency chain of contentID
func (a *DependencyAnalyzer) Analyze(links []entities.ContentLink, contentID string, completed map[string]bool) entities.DependencyChain {
	forward := buildAdjacency(links, false) // prerequisite -> unlocked content
	backward := buildAdjacency(links, true) // content -> its prerequisites

	prerequisites, truncPre := a.closure(backward, contentID)
	dependents, truncDep := a.closure(forward, contentID)
	depth, truncDepth := a.depth(backward, contentID)

	if completed == nil {
		completed = map[string]bool{}
	}

	return entities.DependencyChain{
		NodeID:        contentID,
		Prerequisites: prerequisites,
		Dependents:    dependents,
		Depth:         depth,
		CanAccess:     a.policy(contentID, prerequisites, completed),
		Truncated:     truncPre || truncDep || truncDepth,
	}
}

// CanAccess re-evaluates the access policy for an already computed chain
func (a *DependencyAnalyzer) CanAccess(chain entities.DependencyChain, completed map[string]bool) bool {
	if completed == nil {
		completed = map[string]bool{}
	}
	return a.policy(chain.NodeID, chain.Prerequisites, completed)
}

// closure collects every node reachable from start, breadth first, excluding start
func (a *DependencyAnalyzer) closure(adj adjacency, start string) ([]string, bool) {
	visited := map[string]bool{start: true}
	result := make([]string, 0)
	truncated := false

	frontier := []string{start}
	for level := 0; len(frontier) > 0; level++ {
		if level >= a.maxDepth {
			truncated = true
			break
		}
		var next []string
		for _, node := range frontier {
			for _, n := range adj[node] {
				if visited[n] {
					continue
				}
				visited[n] = true
				result = append(result, n)
				next = append(next, n)
			}
		}
		frontier = next
	}

	sort.Strings(result)
	return result, truncated
}

type depthFrame struct {
	node string
	next int
	best int
}

// depth returns the length of the longest prerequisite chain ending at start.
// Nodes already on the current path are skipped so malformed cyclic data terminates.
func (a *DependencyAnalyzer) depth(backward adjacency, start string) (int, bool) {
	memo := make(map[string]int)
	onPath := map[string]bool{start: true}
	stack := []depthFrame{{node: start}}
	truncated := false

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		preds := backward[top.node]

		if top.next < len(preds) {
			p := preds[top.next]
			top.next++

			if d, ok := memo[p]; ok {
				top.best = max(top.best, d+1)
				continue
			}
			if onPath[p] {
				continue
			}
			if len(stack) >= a.maxDepth {
				truncated = true
				top.best = max(top.best, 1)
				continue
			}
			onPath[p] = true
			stack = append(stack, depthFrame{node: p})
			continue
		}

		memo[top.node] = top.best
		delete(onPath, top.node)
		finished := top.best
		stack = stack[:len(stack)-1]
		if len(stack) > 0 {
			parent := &stack[len(stack)-1]
			parent.best = max(parent.best, finished+1)
		}
	}

	return memo[start], truncated
}
