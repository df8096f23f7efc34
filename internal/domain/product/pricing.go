package product

import "github.com/shopspring/decimal"

var one = decimal.NewFromInt(1)

// UnitPrice 计算订购单价（纯函数：商品 + 数量 + 买家角色）
//
// 规则：
// 1. 在数量达标且角色匹配（或不限角色）的阶梯中取折扣最大的一档
// 2. 单价 = BasePrice × (1 - DiscountRate)，四舍五入到最小货币单位
// 3. 没有适用阶梯时按BasePrice
func UnitPrice(p *Product, quantity int, role string) int64 {
	best := decimal.Zero
	for _, tier := range p.PriceTiers {
		if quantity < tier.MinQuantity {
			continue
		}
		if tier.Role != "" && tier.Role != role {
			continue
		}
		if tier.DiscountRate.GreaterThan(best) {
			best = tier.DiscountRate
		}
	}

	if best.IsZero() {
		return p.BasePrice
	}
	if best.GreaterThanOrEqual(one) {
		return 0
	}

	return decimal.NewFromInt(p.BasePrice).
		Mul(one.Sub(best)).
		Round(0).
		IntPart()
}
