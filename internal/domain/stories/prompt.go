package stories

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	Model     = "deepseek-chat"
	MaxTokens = 2000
)

type Character struct {
	Name          string   `json:"name"`
	Identity      string   `json:"identity"`
	Personality   string   `json:"personality"`
	Background    string   `json:"background"`
	Level         int      `json:"level"`
	SpecialTraits []string `json:"special_traits"`
}

type Request struct {
	BossName   string     `json:"boss_name"`
	StoryTitle string     `json:"story_title"`
	Scenario   string     `json:"scenario"`
	Character  *Character `json:"character,omitempty"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Prompt is one chat-completion request.
type Prompt struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

func levelBonus(level int) string {
	switch {
	case level > 5:
		return "情节更加精彩复杂，包含更多转折和高潮"
	case level > 3:
		return "增加更多细节描写和人物互动"
	default:
		return "保持情节简洁明快"
	}
}

// BuildPrompt renders the system and user messages for req.
func BuildPrompt(req Request) Prompt {
	sc, _ := ScenarioByID(req.Scenario)

	var sys strings.Builder
	fmt.Fprintf(&sys, "你是一位专业的网络小说作家，擅长创作各种类型的爽文。请根据用户提供的信息，创作一段精彩的%s风格的故事内容。\n\n", sc.Name)
	fmt.Fprintf(&sys, "场景设定：%s\n\n", sc.Prompt)
	sys.WriteString("创作要求：\n")
	fmt.Fprintf(&sys, "1. 故事类型：%s\n", sc.Name)
	fmt.Fprintf(&sys, "2. 关键元素：%s\n", strings.Join(sc.Keywords, "、"))
	sys.WriteString("3. 情节要爽快，有逆袭和精彩剧情\n")
	sys.WriteString("4. 内容积极向上，符合主流价值观\n")
	sys.WriteString("5. 字数控制在800-1200字左右\n")
	sys.WriteString("6. 语言生动有趣，节奏紧凑\n")
	sys.WriteString("7. 只返回故事正文内容，不要标题和其他说明文字")

	ch := req.Character
	temperature := 0.8
	if ch != nil && ch.Level > 5 {
		temperature = 0.9
	}
	if ch != nil && ch.Name != "" {
		level := ch.Level
		if level <= 0 {
			level = 1
		}
		sys.WriteString("\n\n角色设定：\n")
		fmt.Fprintf(&sys, "- 主角姓名：%s\n", ch.Name)
		fmt.Fprintf(&sys, "- 身份职位：%s\n", ch.Identity)
		fmt.Fprintf(&sys, "- 性格特点：%s\n", ch.Personality)
		fmt.Fprintf(&sys, "- 背景故事：%s\n", ch.Background)
		fmt.Fprintf(&sys, "- 特殊技能：%s\n", strings.Join(ch.SpecialTraits, "、"))
		fmt.Fprintf(&sys, "- 角色等级：Lv.%d (%s)\n\n", level, levelBonus(level))
		sys.WriteString("请根据以上角色设定来塑造主角的行为、对话和成长轨迹。角色等级越高，剧情应该越精彩。")
	}

	user := fmt.Sprintf("请以\"%s\"作为老板的姓名，以\"%s\"为故事主题，创作一段%s故事。", req.BossName, req.StoryTitle, sc.Name)
	if ch != nil && ch.Name != "" {
		user += fmt.Sprintf("主角是%s，一个%s。", ch.Name, ch.Identity)
	}

	return Prompt{
		Model: Model,
		Messages: []Message{
			{Role: "system", Content: sys.String()},
			{Role: "user", Content: user},
		},
		MaxTokens:   MaxTokens,
		Temperature: temperature,
	}
}

var cleanupPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^#+\s*.+$`),
	regexp.MustCompile(`(?m)^【.+】$`),
	regexp.MustCompile(`(?m)^\s*第.+章.*`),
	regexp.MustCompile(`(?m)^\s*标题：.*`),
	regexp.MustCompile(`(?m)^\s*题目：.*`),
}

// CleanContent strips headings, chapter markers and title lines so only the
// story body remains.
func CleanContent(s string) string {
	for _, re := range cleanupPatterns {
		s = re.ReplaceAllString(s, "")
	}
	return strings.TrimSpace(s)
}
