// Package graph 无向加权图，提供共鸣网络分析所需的中心性与连通分量计算
package graph

import (
	"errors"
	"sort"
)

// ErrDegenerateGraph 节点数不足，中心性没有意义
var ErrDegenerateGraph = errors.New("graph has fewer than two nodes")

// Node 图节点
type Node struct {
	ID   string
	Kind string
}

// Graph 无向加权图（非并发安全）
type Graph struct {
	nodes []Node
	index map[string]int
	adj   []map[int]float64
	edges int
}

// New 创建空图
func New() *Graph {
	return &Graph{
		index: make(map[string]int),
	}
}

// AddNode 添加节点，已存在时忽略
func (g *Graph) AddNode(id, kind string) {
	if _, ok := g.index[id]; ok {
		return
	}
	g.index[id] = len(g.nodes)
	g.nodes = append(g.nodes, Node{ID: id, Kind: kind})
	g.adj = append(g.adj, make(map[int]float64))
}

// AddEdge 添加边，重复添加时累加权重；端点不存在时自动创建，自环忽略
func (g *Graph) AddEdge(a, b string, weight float64) {
	if a == b {
		return
	}
	g.AddNode(a, "")
	g.AddNode(b, "")
	i, j := g.index[a], g.index[b]
	if _, ok := g.adj[i][j]; !ok {
		g.edges++
	}
	g.adj[i][j] += weight
	g.adj[j][i] += weight
}

// HasNode 节点是否存在
func (g *Graph) HasNode(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Node 查找节点
func (g *Graph) Node(id string) (Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// Weight 边权重，边不存在时为 0
func (g *Graph) Weight(a, b string) float64 {
	i, ok := g.index[a]
	if !ok {
		return 0
	}
	j, ok := g.index[b]
	if !ok {
		return 0
	}
	return g.adj[i][j]
}

// NodeCount 节点数
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount 边数
func (g *Graph) EdgeCount() int {
	return g.edges
}

// Density 图密度 2E / (n(n-1))，少于两个节点时为 0
func (g *Graph) Density() float64 {
	n := len(g.nodes)
	if n < 2 {
		return 0
	}
	return 2 * float64(g.edges) / float64(n*(n-1))
}

// DegreeCentrality 度中心性 deg / (n-1)
func (g *Graph) DegreeCentrality() (map[string]float64, error) {
	n := len(g.nodes)
	if n < 2 {
		return nil, ErrDegenerateGraph
	}
	result := make(map[string]float64, n)
	for i, node := range g.nodes {
		result[node.ID] = float64(len(g.adj[i])) / float64(n-1)
	}
	return result, nil
}

// BetweennessCentrality 介数中心性（不考虑权重的 Brandes 算法）
// 归一化因子 2/((n-1)(n-2))，只有两个节点时全部为 0
func (g *Graph) BetweennessCentrality() (map[string]float64, error) {
	n := len(g.nodes)
	if n < 2 {
		return nil, ErrDegenerateGraph
	}

	cb := make([]float64, n)
	for s := 0; s < n; s++ {
		stack := make([]int, 0, n)
		pred := make([][]int, n)
		sigma := make([]float64, n)
		dist := make([]int, n)
		for i := range dist {
			dist[i] = -1
		}
		sigma[s] = 1
		dist[s] = 0

		queue := []int{s}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			stack = append(stack, v)
			for _, w := range g.neighbors(v) {
				if dist[w] < 0 {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					pred[w] = append(pred[w], v)
				}
			}
		}

		delta := make([]float64, n)
		for k := len(stack) - 1; k >= 0; k-- {
			w := stack[k]
			for _, v := range pred[w] {
				delta[v] += sigma[v] / sigma[w] * (1 + delta[w])
			}
			if w != s {
				cb[w] += delta[w]
			}
		}
	}

	result := make(map[string]float64, n)
	scale := 0.0
	if n > 2 {
		// 无向图每条最短路径被统计两次
		scale = 1 / float64((n-1)*(n-2))
	}
	for i, node := range g.nodes {
		result[node.ID] = cb[i] * scale
	}
	return result, nil
}

// Component 节点所在的连通分量（按添加顺序）
func (g *Graph) Component(id string) []Node {
	start, ok := g.index[id]
	if !ok {
		return nil
	}

	seen := map[int]bool{start: true}
	queue := []int{start}
	members := []int{}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		members = append(members, v)
		for _, w := range g.neighbors(v) {
			if !seen[w] {
				seen[w] = true
				queue = append(queue, w)
			}
		}
	}
	sort.Ints(members)

	nodes := make([]Node, len(members))
	for i, m := range members {
		nodes[i] = g.nodes[m]
	}
	return nodes
}

// neighbors 邻居按下标排序，保证遍历结果确定
func (g *Graph) neighbors(v int) []int {
	out := make([]int, 0, len(g.adj[v]))
	for w := range g.adj[v] {
		out = append(out, w)
	}
	sort.Ints(out)
	return out
}
