package service

import "github.com/shopspring/decimal"

// RequiredQty 计算工单物料需求量：qtyPer / baseQty * qtyOrdered * (1 + scrapPct/100)。
// 用decimal避免浮点累积误差（2/10*50*1.10 必须精确等于 11）。
func RequiredQty(qtyPer, baseQty, qtyOrdered, scrapPct float64) float64 {
	per := decimal.NewFromFloat(qtyPer)
	base := decimal.NewFromFloat(baseQty)
	ordered := decimal.NewFromFloat(qtyOrdered)
	scrap := decimal.NewFromFloat(scrapPct).Div(decimal.NewFromInt(100)).Add(decimal.NewFromInt(1))

	required := per.Div(base).Mul(ordered).Mul(scrap)
	f, _ := required.Float64()
	return f
}

// qtyGTE 精确比较 a >= b，绕开浮点比较误差
func qtyGTE(a, b float64) bool {
	return decimal.NewFromFloat(a).GreaterThanOrEqual(decimal.NewFromFloat(b))
}

// withinTolerance 判断新累计量是否在 limit*(1+tolerancePct/100) 以内；
// tolerancePct < 0 表示不设上限（沿用历史行为）
func withinTolerance(newTotal, limit, tolerancePct float64) bool {
	if tolerancePct < 0 {
		return true
	}
	cap := decimal.NewFromFloat(limit).
		Mul(decimal.NewFromFloat(tolerancePct).Div(decimal.NewFromInt(100)).Add(decimal.NewFromInt(1)))
	return decimal.NewFromFloat(newTotal).LessThanOrEqual(cap)
}
