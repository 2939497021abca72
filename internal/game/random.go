package game

import (
	"crypto/rand"
	"math/big"

	"github.com/wfunc/liar-roulette/internal/models"
)

// RandomGenerator 随机源接口（可在测试中替换为确定性实现）
type RandomGenerator interface {
	// NextInt 生成 [min, max] 范围内的随机整数（含两端）
	NextInt(min, max int) int
	// NextMission 随机派发任务
	NextMission() models.Mission
	// NextBadge 随机挑选角色徽章
	NextBadge() models.RoleBadge
	// PickPair 从候选中随机选出两个不同的下标
	PickPair(n int) (int, int)
}

// CryptoRandomGenerator 加密安全的随机数生成器
type CryptoRandomGenerator struct{}

// NewCryptoRandomGenerator 创建加密随机数生成器
func NewCryptoRandomGenerator() *CryptoRandomGenerator {
	return &CryptoRandomGenerator{}
}

// NextInt 生成 [min, max] 范围内的随机整数
func (g *CryptoRandomGenerator) NextInt(min, max int) int {
	if min >= max {
		return min
	}
	diff := big.NewInt(int64(max - min + 1))
	n, _ := rand.Int(rand.Reader, diff)
	return min + int(n.Int64())
}

// NextMission 随机派发任务
func (g *CryptoRandomGenerator) NextMission() models.Mission {
	if g.NextInt(0, 1) == 0 {
		return models.MissionTruth
	}
	return models.MissionLie
}

// NextBadge 随机挑选角色徽章
func (g *CryptoRandomGenerator) NextBadge() models.RoleBadge {
	return models.RoleBadges[g.NextInt(0, len(models.RoleBadges)-1)]
}

// PickPair 从n个候选中选出两个不同的下标
func (g *CryptoRandomGenerator) PickPair(n int) (int, int) {
	first := g.NextInt(0, n-1)
	second := g.NextInt(0, n-2)
	if second >= first {
		second++
	}
	return first, second
}
