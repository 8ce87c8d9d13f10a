package league

import (
	"github.com/okian/xcleague/internal/domain/category"
	"github.com/okian/xcleague/internal/domain/model"
	"github.com/okian/xcleague/internal/domain/normalize"
)

const (
	youthTeamSize = 3
	menTeamSize   = 7
	womenTeamSize = 4
)

// Default returns the built-in Oxfordshire cross country league season.
func Default() *League {
	return &League{
		Name:             "Oxfordshire Cross Country League",
		Rounds:           []string{"r1", "r2", "r3", "r4", "r5"},
		Categories:       defaultCategories(),
		CategoryMappings: defaultMappings(),
		RaceGenders: map[string]model.Gender{
			"Men":   model.Male,
			"Women": model.Female,
			"U11B":  model.Male,
			"U11G":  model.Female,
			"U9":    model.Male,
			"U13":   model.Male,
			"U15":   model.Male,
			"U17":   model.Male,
		},
		Guests:      []string{"1635", "1636", "956", "1652"},
		GuestRanges: []Range{{From: 1718, To: 1763}},
		Divisions: map[string]Divisions{
			"Men": {
				Default: "3",
				Teams: map[string]string{
					"Abingdon AC A":            "1",
					"Swindon Harriers A":       "1",
					"Oxford City AC A":         "1",
					"Headington RR A":          "1",
					"Witney Road Runners A":    "1",
					"Newbury AC A":             "1",
					"White Horse Harriers A":   "1",
					"Alchester Running Club A": "1",
					"Didcot Runners A":         "1",
					"Swindon Harriers B":       "1",
					"Abingdon AC B":            "2",
					"Witney Road Runners B":    "2",
					"Newbury AC B":             "2",
					"Headington RR B":          "2",
					"Woodstock Harriers AC A":  "2",
					"Eynsham Road Runners A":   "2",
					"Harwell Harriers A":       "2",
					"White Horse Harriers B":   "2",
					"Oxford Tri A":             "2",
					"Radley Athletic Club A":   "2",
				},
			},
			"Women": {
				Default: "3",
				Teams: map[string]string{
					"Headington RR A":          "1",
					"Oxford City AC A":         "1",
					"Swindon Harriers A":       "1",
					"Abingdon AC A":            "1",
					"Newbury AC A":             "1",
					"Headington RR B":          "1",
					"White Horse Harriers A":   "1",
					"Witney Road Runners A":    "1",
					"Headington RR C":          "1",
					"Didcot Runners A":         "1",
					"Banbury harriers AC A":    "2",
					"Highworth RC A":           "2",
					"Radley Athletic Club A":   "2",
					"Eynsham Road Runners A":   "2",
					"Woodstock Harriers AC A":  "2",
					"Hook Norton Harriers A":   "2",
					"Oxford Tri A":             "2",
					"Bicester AC A":            "2",
					"Newbury AC B":             "2",
					"Alchester Running Club A": "2",
				},
			},
		},
		NameReplacements: []normalize.Replacement{
			{From: "(2C)", To: ""},
			{From: "÷", To: "ö"},
		},
		Corrections: []normalize.Patch{
			{Round: "r3", Race: "Women", Op: normalize.OpRemove, Bib: "1006"},
			{Round: "r4", Race: "Women", Op: normalize.OpRemove, Bib: "51"},
			{
				Round: "r3", Race: "Men", Op: normalize.OpInsert, Bib: "596", Position: 51,
				Name: "Troy Southall", Club: "Headington RR", Time: "33:29",
				Gender: string(model.Male), Category: "Senior Men",
			},
			{
				Round: "r3", Race: "Men", Op: normalize.OpInsert, Bib: "1606", Position: 186,
				Name: "David Cantwell", Club: "Woodstock Harriers AC", Time: "40:05",
				Gender: string(model.Male), Category: "V50",
			},
			{
				Round: "r3", Race: "U11B", Op: normalize.OpInsert, Bib: "1620", Position: 57,
				Name: "Miles Game", Club: "Woodstock Harriers AC", Time: "8:59",
				Gender: string(model.Male), Category: "U11 Boys",
			},
		},
	}
}

func defaultCategories() []model.CategoryDefinition {
	youth := []struct {
		code, name, race string
		gender           model.Gender
	}{
		{"U9B", "Under 9 Boys", "U9", model.Male},
		{"U9G", "Under 9 Girls", "U9", model.Female},
		{"U11B", "Under 11 Boys", "U11B", model.Male},
		{"U11G", "Under 11 Girls", "U11G", model.Female},
		{"U13B", "Under 13 Boys", "U13", model.Male},
		{"U13G", "Under 13 Girls", "U13", model.Female},
		{"U15B", "Under 15 Boys", "U15", model.Male},
		{"U15G", "Under 15 Girls", "U15", model.Female},
		{"U17M", "Under 17 Men", "U17", model.Male},
		{"U17W", "Under 17 Women", "U17", model.Female},
	}
	adults := []struct {
		code, name, race, age string
		gender                model.Gender
	}{
		{"U20M", "Under 20 Men", "Men", "U20", model.Male},
		{"SM", "Senior Men", "Men", "Senior", model.Male},
		{"MV40", "Men V40", "Men", "V40", model.Male},
		{"MV50", "Men V50", "Men", "V50", model.Male},
		{"MV60", "Men V60", "Men", "V60", model.Male},
		{"MV70", "Men V70", "Men", "V70", model.Male},
		{"U20W", "Under 20 Women", "Women", "U20", model.Female},
		{"SW", "Senior Women", "Women", "Senior", model.Female},
		{"WV40", "Women V40", "Women", "V40", model.Female},
		{"WV50", "Women V50", "Women", "V50", model.Female},
		{"WV60", "Women V60", "Women", "V60", model.Female},
		{"WV70", "Women V70", "Women", "V70", model.Female},
	}

	defs := make([]model.CategoryDefinition, 0, len(youth)+len(adults)+4)
	for _, y := range youth {
		defs = append(defs, model.CategoryDefinition{
			Code: y.code, Name: y.name, Kind: model.KindTeam, Gender: y.gender,
			Race: y.race, TeamSize: youthTeamSize, AgeGroup: y.code[:3],
		})
	}
	for _, a := range adults {
		defs = append(defs, model.CategoryDefinition{
			Code: a.code, Name: a.name, Kind: model.KindIndividual, Gender: a.gender,
			Race: a.race, AgeGroup: a.age,
		})
	}
	return append(defs,
		model.CategoryDefinition{Code: "Men", Name: "Men's Teams", Kind: model.KindTeam, Gender: model.Male, Race: "Men", TeamSize: menTeamSize, Pooled: true},
		model.CategoryDefinition{Code: "Women", Name: "Women's Teams", Kind: model.KindTeam, Gender: model.Female, Race: "Women", TeamSize: womenTeamSize, Pooled: true},
		model.CategoryDefinition{Code: "MensOverall", Name: "Men's Overall", Kind: model.KindOverall, Gender: model.Male, Race: "Men"},
		model.CategoryDefinition{Code: "WomensOverall", Name: "Women's Overall", Kind: model.KindOverall, Gender: model.Female, Race: "Women"},
	)
}

func defaultMappings() []category.Mapping {
	m := func(g model.Gender, label, code string) category.Mapping {
		return category.Mapping{Gender: g, Label: label, Code: code}
	}
	return []category.Mapping{
		m(model.Male, "Senior Men", "SM"),
		m(model.Male, "U20 Men", "U20M"),
		m(model.Male, "V40", "MV40"),
		m(model.Male, "V50", "MV50"),
		m(model.Male, "V60", "MV60"),
		m(model.Male, "V70+", "MV70"),
		m(model.Female, "Senior Women", "SW"),
		m(model.Female, "U20 Women", "U20W"),
		m(model.Female, "V40", "WV40"),
		m(model.Female, "V50", "WV50"),
		m(model.Female, "V60", "WV60"),
		m(model.Female, "V70+", "WV70"),
		m(model.Male, "U9 Boys", "U9B"),
		m(model.Female, "U9 Girls", "U9G"),
		m(model.Male, "U11 Boys", "U11B"),
		m(model.Female, "U11 Girls", "U11G"),
		m(model.Male, "U13 Boys", "U13B"),
		m(model.Male, "U13B", "U13B"),
		m(model.Female, "U13 Girls", "U13G"),
		m(model.Female, "U13G", "U13G"),
		m(model.Male, "U15 Boys", "U15B"),
		m(model.Female, "U15 Girls", "U15G"),
		m(model.Male, "U17 Boys", "U17M"),
		m(model.Female, "U17 Girls", "U17W"),

		// Youth exports without a category column resolve by race name.
		m(model.Male, "U9", "U9B"),
		m(model.Female, "U9", "U9G"),
		m(model.Male, "U11B", "U11B"),
		m(model.Female, "U11G", "U11G"),
		m(model.Male, "U13", "U13B"),
		m(model.Female, "U13", "U13G"),
		m(model.Male, "U15", "U15B"),
		m(model.Female, "U15", "U15G"),
		m(model.Male, "U17", "U17M"),
		m(model.Female, "U17", "U17W"),
	}
}
