package core

import "fmt"

// Phase 标识数据集的阶段：训练 / 验证 / 测试。
type Phase int

const (
	PhaseTrain Phase = iota
	PhaseVal
	PhaseTest
)

// NumPhases 是阶段数量。
const NumPhases = 3

// Phases 按输出顺序列出所有阶段。
var Phases = [NumPhases]Phase{PhaseTrain, PhaseVal, PhaseTest}

func (p Phase) String() string {
	switch p {
	case PhaseTrain:
		return "train"
	case PhaseVal:
		return "val"
	case PhaseTest:
		return "test"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ParsePhase 将 "train" / "val" / "test" 解析为 Phase。
func ParsePhase(s string) (Phase, error) {
	for _, p := range Phases {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, NewDomainError(ModuleConfig, ErrorCodeInvalidInput, fmt.Sprintf("unknown phase %q", s))
}
