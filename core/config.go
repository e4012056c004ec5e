package core

// 参考默认值。
const (
	DefaultMargin = 10 // 每个阶段截断到 min_size + margin
	DefaultRatio  = 5  // 负样本数 = ratio × 正样本数
	DefaultFactor = 2  // 完全随机候选池 = factor × 所需负样本数
)

// DefaultMinSizes 是 train / val / test 的最小正样本数。
var DefaultMinSizes = [NumPhases]int{250, 20, 20}

// DefaultCategories 是参考领域的类目：上装 / 下装 / 鞋。
var DefaultCategories = []string{"top", "bottom", "shoe"}

// Categories 返回 DefaultCategories 的副本，避免调用方修改全局切片。
func Categories() []string {
	out := make([]string, len(DefaultCategories))
	copy(out, DefaultCategories)
	return out
}
