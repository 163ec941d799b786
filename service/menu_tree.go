package service

import (
	"sort"

	"siemadmin/models"
)

// MenuNode 组装后的菜单节点
type MenuNode struct {
	Item     models.MenuItem `json:"item"`
	Children []*MenuNode     `json:"children"`
}

// AssembleMenuTree 将扁平的菜单序列组装成森林，两遍完成：
// 第一遍建立 id 索引，第二遍按序把节点挂到父节点下
// 父节点不在序列中的节点作为根节点；子节点保持输入顺序
// 输入中若存在环，环上第一个出现的节点被提升为根，保证每个节点恰好出现一次
func AssembleMenuTree(items []models.MenuItem) []*MenuNode {
	nodes := make(map[uint]*MenuNode, len(items))
	ordered := make([]*MenuNode, 0, len(items))
	for i := range items {
		n := &MenuNode{Item: items[i], Children: []*MenuNode{}}
		nodes[items[i].ID] = n
		ordered = append(ordered, n)
	}

	roots := make([]*MenuNode, 0)
	parentOf := make(map[*MenuNode]*MenuNode, len(items))
	for _, n := range ordered {
		if pid := n.Item.ParentID; pid != nil && *pid != n.Item.ID {
			if parent, ok := nodes[*pid]; ok {
				parent.Children = append(parent.Children, n)
				parentOf[n] = parent
				continue
			}
		}
		roots = append(roots, n)
	}

	visited := make(map[*MenuNode]bool, len(ordered))
	var mark func(n *MenuNode)
	mark = func(n *MenuNode) {
		if visited[n] {
			return
		}
		visited[n] = true
		for _, c := range n.Children {
			mark(c)
		}
	}
	for _, r := range roots {
		mark(r)
	}
	for _, n := range ordered {
		if visited[n] {
			continue
		}
		if parent := parentOf[n]; parent != nil {
			parent.Children = removeNode(parent.Children, n)
		}
		roots = append(roots, n)
		mark(n)
	}
	return roots
}

func removeNode(list []*MenuNode, target *MenuNode) []*MenuNode {
	out := list[:0]
	for _, n := range list {
		if n != target {
			out = append(out, n)
		}
	}
	return out
}

// FlattenMenuTree 先序遍历还原扁平序列
func FlattenMenuTree(roots []*MenuNode) []models.MenuItem {
	var out []models.MenuItem
	var walk func(nodes []*MenuNode)
	walk = func(nodes []*MenuNode) {
		for _, n := range nodes {
			out = append(out, n.Item)
			walk(n.Children)
		}
	}
	walk(roots)
	return out
}

// PruneMenuTree 保留 keep 返回 true 的节点；被剔除节点的子树一并剔除
func PruneMenuTree(roots []*MenuNode, keep func(models.MenuItem) bool) []*MenuNode {
	out := make([]*MenuNode, 0, len(roots))
	for _, n := range roots {
		if !keep(n.Item) {
			continue
		}
		out = append(out, &MenuNode{Item: n.Item, Children: PruneMenuTree(n.Children, keep)})
	}
	return out
}

// CollectMenuIDs 收集树中全部节点 ID
func CollectMenuIDs(roots []*MenuNode) []uint {
	var ids []uint
	for _, item := range FlattenMenuTree(roots) {
		ids = append(ids, item.ID)
	}
	return ids
}

// CategoryGroup 一个分类下的顶级菜单
type CategoryGroup struct {
	Category models.MenuCategory
	Roots    []*MenuNode
}

// GroupByCategory 以 category.order_index 为准对启用分类下的顶级节点分组
// 分类内顺序沿用输入顺序；只有未设置分类的节点放入 uncategorized，
// 分类已停用或不在列表中的节点连同其子树一起隐藏
func GroupByCategory(categories []models.MenuCategory, roots []*MenuNode) ([]CategoryGroup, []*MenuNode) {
	sorted := make([]models.MenuCategory, 0, len(categories))
	for _, c := range categories {
		if c.IsActive {
			sorted = append(sorted, c)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].OrderIndex != sorted[j].OrderIndex {
			return sorted[i].OrderIndex < sorted[j].OrderIndex
		}
		return sorted[i].ID < sorted[j].ID
	})

	index := make(map[uint]int, len(sorted))
	groups := make([]CategoryGroup, len(sorted))
	for i, c := range sorted {
		index[c.ID] = i
		groups[i] = CategoryGroup{Category: c, Roots: []*MenuNode{}}
	}

	uncategorized := make([]*MenuNode, 0)
	for _, n := range roots {
		if n.Item.CategoryID == nil {
			uncategorized = append(uncategorized, n)
			continue
		}
		if i, ok := index[*n.Item.CategoryID]; ok {
			groups[i].Roots = append(groups[i].Roots, n)
		}
	}
	return groups, uncategorized
}
