package matisgo

// readSpan 批次讀取計畫：以一次保持暫存器讀取涵蓋整個列表
type readSpan struct {
	start uint16
	count uint16
}

// planReadSpan 驗證暫存器列表並計算涵蓋範圍。列表必須非空、
// 全部可讀、位址嚴格遞增且不重疊，且總範圍不超過單次讀取上限。
// 違反任一約束即回報參數錯誤，呼叫端不得發出 I/O。
func planReadSpan(regs []Register) (readSpan, error) {
	if len(regs) == 0 {
		return readSpan{}, errInvalidArgf("暫存器列表不可為空")
	}

	for i, reg := range regs {
		if !reg.Access.CanRead() {
			return readSpan{}, errInvalidArgf("屬性 %s 不可讀取", reg.Property)
		}
		if reg.Length == 0 {
			return readSpan{}, errInvalidArgf("屬性 %s 長度為零", reg.Property)
		}
		if i == 0 {
			continue
		}
		prev := regs[i-1]
		if reg.Address < prev.Address+prev.Length {
			return readSpan{}, errInvalidArgf(
				"屬性 %s (位址 %d) 與前一個屬性 %s (位址 %d, 長度 %d) 重疊或未遞增",
				reg.Property, reg.Address, prev.Property, prev.Address, prev.Length,
			)
		}
	}

	first := regs[0]
	last := regs[len(regs)-1]
	total := uint32(last.Address) + uint32(last.Length) - uint32(first.Address)
	if total > MaxRegistersPerRead {
		return readSpan{}, errInvalidArgf("讀取範圍 %d 超過單次讀取上限 %d", total, MaxRegistersPerRead)
	}

	return readSpan{start: first.Address, count: uint16(total)}, nil
}
