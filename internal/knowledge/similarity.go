package knowledge

import "math"

// l2Distance 计算两个向量的欧氏距离。
// 维度不一致时返回+Inf，调用方应在此之前完成维度校验。
func l2Distance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}

	var sum float64
	for i := range a {
		diff := float64(a[i] - b[i])
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// DistanceToSimilarity 将距离转换为(0,1]区间的相似度分数。
// 距离越小相似度越高，距离0对应相似度1。
func DistanceToSimilarity(distance float64) float64 {
	return math.Exp(-distance)
}
