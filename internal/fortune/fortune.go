// Package fortune holds the fixed catalog of new-year messages handed out by
// the draw.
package fortune

import (
	"math/rand/v2"
)

// Category groups fortunes for display.
type Category string

const (
	Idiom  Category = "idiom"
	Bible  Category = "bible"
	Talmud Category = "talmud"
	Korean Category = "korean"
	Modern Category = "modern"
)

type Fortune struct {
	ID            int      `json:"id"`
	Category      Category `json:"category"`
	CategoryLabel string   `json:"categoryLabel"`
	Title         string   `json:"title"`
	Message       string   `json:"message"`
	Emoji         string   `json:"emoji"`
}

var labels = map[Category]string{
	Idiom:  "사자성어",
	Bible:  "성경 말씀",
	Talmud: "탈무드 지혜",
	Korean: "우리 덕담",
	Modern: "오늘의 명언",
}

// Label returns the display label of c, or the korean label for unknown
// categories.
func Label(c Category) string {
	if l, ok := labels[c]; ok {
		return l
	}
	return labels[Korean]
}

var gradients = map[Category]string{
	Idiom:  "linear-gradient(135deg, #f59e0b 0%, #ea580c 100%)",
	Bible:  "linear-gradient(135deg, #3b82f6 0%, #6366f1 100%)",
	Talmud: "linear-gradient(135deg, #10b981 0%, #14b8a6 100%)",
	Korean: "linear-gradient(135deg, #ec4899 0%, #f43f5e 100%)",
	Modern: "linear-gradient(135deg, #8b5cf6 0%, #a855f7 100%)",
}

// Gradient returns the CSS badge background for a category name. Unknown
// categories get the korean gradient.
func Gradient(category string) string {
	if g, ok := gradients[Category(category)]; ok {
		return g
	}
	return gradients[Korean]
}

func entry(id int, c Category, title, message, emoji string) Fortune {
	return Fortune{ID: id, Category: c, CategoryLabel: labels[c], Title: title, Message: message, Emoji: emoji}
}

var catalog = []Fortune{
	entry(1, Idiom, "마부작침", "도끼를 갈아 바늘을 만들듯, 꾸준함이 올해 당신의 가장 큰 힘이 됩니다.", "🪡"),
	entry(2, Idiom, "일취월장", "날마다 나아가고 달마다 자라는 한 해가 되길 바랍니다.", "📈"),
	entry(3, Idiom, "만사형통", "하시는 모든 일이 막힘없이 술술 풀리기를 빕니다.", "🍀"),
	entry(4, Idiom, "용마득천", "말이 하늘을 얻은 듯 힘차게 달려 나가는 해가 될 것입니다.", "🐎"),
	entry(5, Bible, "새 힘을 얻으리니", "여호와를 앙망하는 자는 새 힘을 얻으리니 독수리가 날개치며 올라감 같을 것이요.", "🦅"),
	entry(6, Bible, "범사에 감사하라", "항상 기뻐하라 쉬지 말고 기도하라 범사에 감사하라.", "🙏"),
	entry(7, Bible, "시작은 미약하나", "네 시작은 미약하였으나 네 나중은 심히 창대하리라.", "🌱"),
	entry(8, Talmud, "배우는 사람", "세상에서 가장 지혜로운 사람은 모든 사람에게서 배우는 사람입니다.", "📖"),
	entry(9, Talmud, "오늘의 한 걸음", "내일 할 일을 오늘 시작하는 사람에게 행운이 먼저 찾아옵니다.", "👣"),
	entry(10, Talmud, "말의 무게", "입은 하나 귀는 둘, 두 번 듣고 한 번 말하면 귀인이 모입니다.", "👂"),
	entry(11, Korean, "말띠 해의 복", "달리는 말에 복이 실려 오니, 문을 활짝 열어 두세요.", "🐴"),
	entry(12, Korean, "티끌 모아 태산", "작은 기쁨을 차곡차곡 모아 큰 행복의 산을 쌓는 한 해가 되길.", "⛰️"),
	entry(13, Korean, "웃으면 복이 와요", "웃는 얼굴에 침 못 뱉는다지요. 올해는 웃음이 복을 부릅니다.", "😊"),
	entry(14, Modern, "지금이 가장 빠른 때", "늦었다고 생각할 때가 가장 빠른 때입니다. 미뤄 둔 꿈을 시작하세요.", "⏰"),
	entry(15, Modern, "작은 습관", "매일 1퍼센트씩 나아지면 한 해 뒤에는 서른일곱 배 성장한 당신을 만납니다.", "✨"),
	entry(16, Modern, "행운의 준비", "행운은 준비된 사람에게 찾아옵니다. 당신은 이미 준비되어 있어요.", "🎯"),
}

// All returns a copy of the catalog in id order.
func All() []Fortune {
	out := make([]Fortune, len(catalog))
	copy(out, catalog)
	return out
}

// ByID returns the fortune with the given id.
func ByID(id int) (Fortune, bool) {
	for _, f := range catalog {
		if f.ID == id {
			return f, true
		}
	}
	return Fortune{}, false
}

// Draw picks a fortune uniformly at random.
func Draw() Fortune {
	return catalog[rand.IntN(len(catalog))]
}
