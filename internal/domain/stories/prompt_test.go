package stories

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarioByID(t *testing.T) {
	sc, ok := ScenarioByID("ceo-romance")
	assert.True(t, ok)
	assert.Equal(t, "霸道总裁", sc.Name)

	sc, ok = ScenarioByID("does-not-exist")
	assert.False(t, ok)
	assert.Equal(t, DefaultScenario().ID, sc.ID)
	assert.Len(t, Scenarios(), 8)
}

func TestBuildPrompt_WithoutCharacter(t *testing.T) {
	p := BuildPrompt(Request{BossName: "王总", StoryTitle: "逆袭之路", Scenario: "campus-youth"})

	assert.Equal(t, Model, p.Model)
	assert.Equal(t, MaxTokens, p.MaxTokens)
	assert.Equal(t, 0.8, p.Temperature)
	assert.False(t, p.Stream)
	require.Len(t, p.Messages, 2)

	assert.Equal(t, "system", p.Messages[0].Role)
	assert.Contains(t, p.Messages[0].Content, "校园青春")
	assert.Contains(t, p.Messages[0].Content, "校园、青春、学生、友谊")
	assert.NotContains(t, p.Messages[0].Content, "角色设定")

	assert.Equal(t, "user", p.Messages[1].Role)
	assert.Equal(t, "请以\"王总\"作为老板的姓名，以\"逆袭之路\"为故事主题，创作一段校园青春故事。", p.Messages[1].Content)
}

func TestBuildPrompt_HighLevelCharacter(t *testing.T) {
	p := BuildPrompt(Request{
		BossName:   "李总",
		StoryTitle: "豪门风云",
		Scenario:   "wealthy-family",
		Character: &Character{
			Name:          "林晓",
			Identity:      "首席秘书",
			Personality:   "冷静",
			Background:    "出身平凡",
			Level:         6,
			SpecialTraits: []string{"过目不忘", "谈判"},
		},
	})

	assert.Equal(t, 0.9, p.Temperature)
	sys := p.Messages[0].Content
	assert.Contains(t, sys, "- 主角姓名：林晓")
	assert.Contains(t, sys, "- 特殊技能：过目不忘、谈判")
	assert.Contains(t, sys, "Lv.6 (情节更加精彩复杂，包含更多转折和高潮)")
	assert.Contains(t, p.Messages[1].Content, "主角是林晓，一个首席秘书。")
}

func TestBuildPrompt_CharacterLevelDefaults(t *testing.T) {
	p := BuildPrompt(Request{BossName: "a", StoryTitle: "b", Character: &Character{Name: "c", Level: 4}})
	assert.Equal(t, 0.8, p.Temperature)
	assert.Contains(t, p.Messages[0].Content, "Lv.4 (增加更多细节描写和人物互动)")

	p = BuildPrompt(Request{BossName: "a", StoryTitle: "b", Character: &Character{Name: "c"}})
	assert.Contains(t, p.Messages[0].Content, "Lv.1 (保持情节简洁明快)")
}

func TestCleanContent(t *testing.T) {
	in := "# 逆袭之路\n标题：逆袭之路\n第一章 重生\n【开篇】\n她睁开眼睛。\n题目：无\n一切都不一样了。\n"
	assert.Equal(t, "她睁开眼睛。\n\n一切都不一样了。", CleanContent(in))
	assert.Equal(t, "", CleanContent("## 只有标题"))
}
