package dialogue

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matjip-map/discovery-service/internal/domain"
)

// MaxPartySize bounds the party size answer.
const MaxPartySize = 20

const (
	promptRegion       = "어느 지역에서 식사하실 건가요? (예: 수원시, 은평구)"
	promptPartySize    = "몇 명이서 드실 건가요?"
	promptCuisine      = "어떤 음식이 좋으세요? (한식, 중식, 일식, 양식, 분식, 카페)"
	promptSearching    = "조건에 맞는 맛집을 찾고 있어요."
	repromptRegion     = "지역 이름을 입력해 주세요."
	repromptPartySize  = "인원은 1명에서 20명 사이의 숫자로 입력해 주세요."
	repromptCuisine    = "원하시는 음식 종류를 입력해 주세요."
	messageNoResults   = "조건에 맞는 맛집을 찾지 못했어요. 처음부터 다시 시작해 주세요."
	messageFoundFormat = "맛집 %d곳을 찾았어요."
)

// Criteria is what the dialogue collects.
type Criteria struct {
	Region    string
	Origin    *domain.Coordinate
	PartySize int
	Cuisine   string
	Category  domain.Category
}

// Query renders the criteria as the single recommendation request.
func (c Criteria) Query() string {
	q := fmt.Sprintf("%s에서 %d명이 먹을 %s 맛집 추천해줘", c.Region, c.PartySize, c.Cuisine)
	if c.Origin != nil {
		q += fmt.Sprintf(" (기준 좌표 %s)", c.Origin.String())
	}
	return q
}

func parseRegion(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}

func parseCuisine(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}

var nativeCounts = map[string]int{
	"혼자": 1, "한": 1, "하나": 1,
	"두": 2, "둘": 2,
	"세": 3, "셋": 3,
	"네": 4, "넷": 4,
	"다섯": 5, "여섯": 6, "일곱": 7, "여덟": 8, "아홉": 9, "열": 10,
}

// parsePartySize accepts "2", "2명", "2 명", "2인" and native Korean counts
// such as "두 명".
func parsePartySize(s string) (int, bool) {
	s = strings.TrimSpace(s)
	for _, suffix := range []string{"명", "인", "사람"} {
		s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
	}
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		var ok bool
		if n, ok = nativeCounts[s]; !ok {
			return 0, false
		}
	}
	if n < 1 || n > MaxPartySize {
		return 0, false
	}
	return n, true
}
