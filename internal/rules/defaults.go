package rules

// Built-in fallback tables, used when a rule document is absent from the
// rules directory. They keep the engine useful out of the box; editors
// override them by dropping files into the rules directory.

func defaultConfusion() map[rune][]Alt {
	return map[rune][]Alt{
		'在': {{Char: '再', Class: ClassPhonetic}},
		'再': {{Char: '在', Class: ClassPhonetic}},
		'渡': {{Char: '度', Class: ClassPhonetic}},
		'度': {{Char: '渡', Class: ClassPhonetic}},
		'形': {{Char: '型', Class: ClassPhonetic}},
		'型': {{Char: '形', Class: ClassPhonetic}},
		'号': {{Char: '好', Class: ClassPhonetic}},
		'好': {{Char: '号', Class: ClassPhonetic}},
		'已': {{Char: '以', Class: ClassPhonetic}},
		'以': {{Char: '已', Class: ClassPhonetic}},
		'未': {{Char: '末', Class: ClassShape}},
		'末': {{Char: '未', Class: ClassShape}},
		'经': {{Char: '竟', Class: ClassPhonetic}},
		'竟': {{Char: '经', Class: ClassPhonetic}},
		'期': {{Char: '其', Class: ClassPhonetic}},
		'其': {{Char: '期', Class: ClassPhonetic}},
		'到': {{Char: '倒', Class: ClassPhonetic}},
		'倒': {{Char: '到', Class: ClassPhonetic}},
		'作': {{Char: '做', Class: ClassPhonetic}},
		'做': {{Char: '作', Class: ClassPhonetic}},
	}
}

func defaultWords() map[string]struct{} {
	words := []string{
		"你好", "您好", "问好", "友好",
		"信号", "编号", "账号", "型号",
		"形象", "效果", "度过", "过度",
		"已经", "以后", "以前", "再次",
		"现在", "在于", "到达", "时期",
		"其实", "经过", "毕竟", "工作",
		"做事", "末尾", "周末", "未来",
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func defaultWhitelist() map[string]struct{} {
	words := []string{
		"横渡", "渡口", "渡船", "倒影", "好转",
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func defaultRegexRules() []RawRule {
	conf := func(v float64) *float64 { return &v }
	return []RawRule{
		{
			ID:         "duplicate_de",
			Kind:       "regex",
			Pattern:    `的的`,
			Hint:       "连续两个“的”，多为笔误",
			Suggest:    "的",
			Confidence: conf(0.9),
		},
		{
			ID:         "ascii_ellipsis",
			Kind:       "regex",
			Pattern:    `\.{3,}`,
			Hint:       "中文省略号应使用“……”",
			Suggest:    "……",
			Confidence: conf(0.75),
		},
		{
			ID:         "mixed_comma",
			Kind:       "regex",
			Pattern:    `([\x{4e00}-\x{9fff}]),`,
			Hint:       "中文语境应使用全角逗号",
			Suggest:    `\1，`,
			Confidence: conf(0.7),
		},
	}
}

func defaultPOSPatterns() []RawPOSPattern {
	conf := func(v float64) *float64 { return &v }
	return []RawPOSPattern{
		{
			ID: "pos_de_maybe_di",
			Sequence: []Matcher{
				{Tag: "d"},
				{Word: "的"},
				{Tag: "v"},
			},
			Hint:       "副词后接动词时多用“地”",
			Suggest:    "地",
			Confidence: conf(0.6),
		},
		{
			ID: "pos_di_maybe_de",
			Sequence: []Matcher{
				{Tag: "a"},
				{Word: "地"},
				{Tag: "n"},
			},
			Hint:       "形容词修饰名词时多用“的”",
			Suggest:    "的",
			Confidence: conf(0.6),
		},
	}
}

func defaultTerms() []RawTerm {
	return nil
}
