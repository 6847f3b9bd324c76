package normalize

// topicDef binds a canonical topic to its known phrase variants. Declaration
// order is the resolution order: when more than one topic could match the
// same text, the earliest declared topic wins.
type topicDef struct {
	Topic    string
	Variants []string
}

var topicTable = []topicDef{
	{Topic: "contact number", Variants: []string{
		"phone number", "mobile number", "cell number", "telephone number",
		"contact", "phone", "mobile", "telephone",
	}},
	{Topic: "name", Variants: []string{
		"full name", "complete name", "your name", "fullname",
		"first name", "last name", "given name", "surname",
	}},
	{Topic: "email", Variants: []string{
		"email address", "e mail", "mail id", "mail address",
	}},
	{Topic: "location", Variants: []string{
		"current location", "where are you", "your location", "present location",
		"current place", "where do you live", "residence", "address",
		"city", "state", "country",
	}},
	{Topic: "hometown", Variants: []string{
		"home town", "native place", "place of origin", "where are you from",
		"birth place", "native city", "birth city", "birth town",
	}},
	{Topic: "role", Variants: []string{
		"role applied for", "position", "job role", "applied position",
		"desired role", "job title", "applying for", "job position",
	}},
	{Topic: "prn", Variants: []string{
		"permanent registration number", "registration number", "student id",
		"roll number", "enrollment number",
	}},
	{Topic: "cpi", Variants: []string{
		"cumulative performance index", "cgpa", "grade point average",
		"academic performance", "performance index",
	}},
	{Topic: "branch", Variants: []string{
		"department", "course", "stream", "field of study", "major", "specialization",
	}},
}

// keywordGroup is a broader fallback checked only after the topic table fails
// to match. Group order is a fixed priority.
type keywordGroup struct {
	Topic    string
	Keywords []string
}

var keywordGroups = []keywordGroup{
	{Topic: "name", Keywords: []string{"name"}},
	{Topic: "location", Keywords: []string{"location", "where", "place", "address", "city", "state", "country"}},
	{Topic: "hometown", Keywords: []string{"home", "town", "native", "birth"}},
	{Topic: "role", Keywords: []string{"role", "position", "job", "applying"}},
	{Topic: "contact number", Keywords: []string{"phone", "contact", "mobile", "telephone"}},
	{Topic: "email", Keywords: []string{"email", "mail"}},
	{Topic: "prn", Keywords: []string{"prn", "registration", "roll", "enrollment"}},
	{Topic: "cpi", Keywords: []string{"cpi", "cgpa", "grade", "performance"}},
	{Topic: "branch", Keywords: []string{"branch", "department", "course", "stream"}},
}

// Topics returns the canonical topic vocabulary in declaration order.
func Topics() []string {
	out := make([]string, 0, len(topicTable))
	for _, def := range topicTable {
		out = append(out, def.Topic)
	}
	return out
}
