package stories

type Scenario struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	Prompt      string   `json:"prompt"`
}

var scenarios = []Scenario{
	{
		ID:          "rebirth-secretary",
		Name:        "重生秘书",
		Description: "重生回到过去，成为老板的贴身秘书",
		Keywords:    []string{"重生", "职场", "秘书", "逆袭"},
		Prompt:      "主角重生回到过去，成为老板的秘书，利用未来的记忆和知识，在职场中逆袭成功的故事。",
	},
	{
		ID:          "wealthy-family",
		Name:        "豪门恩怨",
		Description: "豪门家族内部的爱恨情仇",
		Keywords:    []string{"豪门", "家族", "继承", "权力"},
		Prompt:      "围绕豪门家族展开，涉及财产继承、权力斗争、爱情纠葛的复杂故事。",
	},
	{
		ID:          "ceo-romance",
		Name:        "霸道总裁",
		Description: "冷酷总裁与平凡员工的爱情故事",
		Keywords:    []string{"总裁", "霸道", "爱情", "契约"},
		Prompt:      "霸道冷酷的总裁与普通员工之间发生的浪漫爱情故事，充满甜蜜与冲突。",
	},
	{
		ID:          "sweet-romance",
		Name:        "甜宠日常",
		Description: "温馨甜蜜的日常恋爱故事",
		Keywords:    []string{"甜宠", "日常", "温馨", "治愈"},
		Prompt:      "温馨甜蜜的日常生活故事，充满温暖治愈的元素，展现美好的爱情生活。",
	},
	{
		ID:          "fantasy-cultivation",
		Name:        "玄幻修仙",
		Description: "修仙世界的冒险与成长",
		Keywords:    []string{"玄幻", "修仙", "冒险", "升级"},
		Prompt:      "在玄幻世界中修炼成仙，经历各种冒险和挑战，不断提升实力的成长故事。",
	},
	{
		ID:          "campus-youth",
		Name:        "校园青春",
		Description: "校园里的青春回忆与成长",
		Keywords:    []string{"校园", "青春", "学生", "友谊"},
		Prompt:      "发生在校园中的青春故事，包含友谊、爱情、成长和梦想的美好回忆。",
	},
	{
		ID:          "entertainment-circle",
		Name:        "娱乐圈",
		Description: "娱乐圈的明星生活与竞争",
		Keywords:    []string{"娱乐圈", "明星", "经纪", "竞争"},
		Prompt:      "围绕娱乐圈展开的故事，涉及明星生活、商业竞争、粉丝文化等元素。",
	},
	{
		ID:          "transmigration",
		Name:        "穿越重生",
		Description: "穿越到不同时空的奇幻经历",
		Keywords:    []string{"穿越", "重生", "异世界", "金手指"},
		Prompt:      "主角穿越到不同的时空或世界，利用现代知识和特殊能力改变命运的故事。",
	},
}

// Scenarios returns a copy of the catalog.
func Scenarios() []Scenario {
	out := make([]Scenario, len(scenarios))
	copy(out, scenarios)
	return out
}

func DefaultScenario() Scenario {
	return scenarios[0]
}

// ScenarioByID falls back to the default scenario for unknown ids.
func ScenarioByID(id string) (Scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return DefaultScenario(), false
}
