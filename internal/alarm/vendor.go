package alarm

import "strings"

// VendorProfile 厂商画像 — 封闭枚举
//
// "激进"厂商指即便授予了精确闹钟权限，仍会杀死后台通知投递的厂商。
// 画像以数据形式携带行为（是否启用备份通道）与整改指引（供 UI 协作方展示），
// 避免在调度器里散落字符串分支。
type VendorProfile struct {
	Name         string `json:"name"`
	Aggressive   bool   `json:"aggressive"`
	EngageBackup bool   `json:"engage_backup"`
	Remediation  string `json:"remediation,omitempty"`
}

// 已知厂商画像（闭集，未命中一律归入 generic）
var (
	vendorGeneric = VendorProfile{Name: "generic"}

	vendorMIUI = VendorProfile{
		Name: "miui", Aggressive: true, EngageBackup: true,
		Remediation: "请在 设置 > 应用管理 中开启自启动，并将省电策略设为无限制",
	}
	vendorEMUI = VendorProfile{
		Name: "emui", Aggressive: true, EngageBackup: true,
		Remediation: "请在 设置 > 电池 > 应用启动管理 中改为手动管理并全部允许",
	}
	vendorColorOS = VendorProfile{
		Name: "coloros", Aggressive: true, EngageBackup: true,
		Remediation: "请在 设置 > 电池 中关闭应用速冻，并允许后台运行",
	}
	vendorFuntouch = VendorProfile{
		Name: "funtouch", Aggressive: true, EngageBackup: true,
		Remediation: "请在 i管家 > 后台高耗电 中允许本应用后台运行",
	}
	vendorOnePlus = VendorProfile{
		Name: "oneplus", Aggressive: true, EngageBackup: true,
		Remediation: "请在 设置 > 电池 > 电池优化 中将本应用设为不优化",
	}
	// 三星的休眠策略会延迟而非丢弃投递，不启用备份通道，仅提示
	vendorSamsung = VendorProfile{
		Name: "samsung", Aggressive: true,
		Remediation: "请在 设置 > 电池 中将本应用移出休眠应用列表",
	}
)

var vendorIndex = map[string]VendorProfile{
	"xiaomi":  vendorMIUI,
	"redmi":   vendorMIUI,
	"poco":    vendorMIUI,
	"huawei":  vendorEMUI,
	"honor":   vendorEMUI,
	"oppo":    vendorColorOS,
	"realme":  vendorColorOS,
	"vivo":    vendorFuntouch,
	"iqoo":    vendorFuntouch,
	"oneplus": vendorOnePlus,
	"samsung": vendorSamsung,
}

// ClassifyVendor 把设备厂商串映射为厂商画像，未知厂商回落 generic
func ClassifyVendor(manufacturer string) VendorProfile {
	key := strings.ToLower(strings.TrimSpace(manufacturer))
	if p, ok := vendorIndex[key]; ok {
		return p
	}
	return vendorGeneric
}
