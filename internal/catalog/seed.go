package catalog

import (
	"github.com/abhisek/eikengen/internal/eiken"
	"github.com/abhisek/eikengen/internal/store"
)

type seedTopic struct {
	code, en, ja string
	abstractness int
	context      ContextType
	weight, freq float64
	scenario     string
	subs, axes   []string
}

var seedByGrade = map[eiken.Grade][]seedTopic{
	eiken.Grade5: {
		{"family", "Family", "家族", 1, ContextPersonal, 1.2, 0.9, "Family members, what they like, what they do at home", []string{"parents", "siblings", "grandparents"}, []string{"description", "like_dislike"}},
		{"school_life", "School Life", "学校生活", 1, ContextDaily, 1.2, 0.9, "Classes, teachers, friends and lunch time at school", []string{"classes", "teachers", "lunch"}, []string{"description", "routine"}},
		{"food", "Food", "食べ物", 1, ContextDaily, 1.1, 0.8, "Favorite food, breakfast, cooking with family", []string{"breakfast", "fruit", "snacks"}, []string{"like_dislike", "favorite"}},
		{"animals", "Animals", "動物", 1, ContextPersonal, 1.0, 0.7, "Pets and animals at the zoo", []string{"dogs", "cats", "zoo"}, []string{"description", "favorite"}},
		{"colors_clothes", "Colors and Clothes", "色と服", 1, ContextDaily, 0.9, 0.6, "Clothes people wear and their colors", []string{"colors", "shirts", "shoes"}, []string{"description"}},
		{"daily_routine", "Daily Routine", "日課", 1, ContextDaily, 1.0, 0.8, "What people do in the morning and evening", []string{"morning", "evening", "time"}, []string{"routine"}},
		{"sports_play", "Sports and Play", "スポーツと遊び", 1, ContextPersonal, 1.0, 0.7, "Playing games and sports with friends", []string{"soccer", "tennis", "park"}, []string{"like_dislike", "ability"}},
		{"weather_days", "Weather and Days", "天気と曜日", 1, ContextDaily, 0.9, 0.6, "Weather, days of the week and months", []string{"sunny", "rainy", "weekdays"}, []string{"description"}},
	},
	eiken.Grade4: {
		{"pets", "Pets", "ペット", 2, ContextPersonal, 1.1, 0.9, "Pets, animals at home, taking care of pets, visits to pet shops or zoos", []string{"my_pet", "animal_care", "zoo_visit"}, []string{"like_dislike", "favorite", "description"}},
		{"weather", "Weather", "天気", 1, ContextDaily, 1.0, 0.8, "Weather, seasons and activities in different weather", []string{"sunny", "rainy", "seasons"}, []string{"description", "preference"}},
		{"sports", "Sports", "スポーツ", 2, ContextPersonal, 1.2, 0.9, "Favorite sports, playing and watching sports, sports day", []string{"soccer", "swimming", "sports_day"}, []string{"like_dislike", "participation"}},
		{"shopping", "Shopping", "買い物", 2, ContextDaily, 1.0, 0.7, "Going to stores, buying things, pocket money", []string{"supermarket", "clothes", "pocket_money"}, []string{"experience", "preferences"}},
		{"festivals", "Festivals and Events", "お祭り・イベント", 2, ContextDaily, 1.0, 0.7, "School festivals, local festivals and celebrations", []string{"school_festival", "summer_festival", "birthday"}, []string{"experience", "plans"}},
		{"hobbies", "Hobbies", "趣味", 2, ContextPersonal, 1.1, 0.8, "Hobbies, free time and clubs", []string{"music", "reading", "games"}, []string{"like_dislike", "frequency"}},
		{"weekend_plans", "Weekend Plans", "週末の予定", 2, ContextPersonal, 1.0, 0.8, "Plans for the weekend and what people did last weekend", []string{"visiting", "movies", "park"}, []string{"plans", "experience"}},
		{"town", "My Town", "町", 2, ContextDaily, 0.9, 0.6, "Places in town and how to get there", []string{"station", "library", "directions"}, []string{"description"}},
	},
	eiken.Grade3: {
		{"travel", "Travel", "旅行", 2, ContextPersonal, 1.1, 0.8, "Trips with family, school trips, places to visit", []string{"school_trip", "sightseeing", "souvenirs"}, []string{"experience", "preference"}},
		{"club_activities", "Club Activities", "部活動", 2, ContextDaily, 1.2, 0.9, "School clubs, practice and competitions", []string{"brass_band", "baseball_club", "tournament"}, []string{"experience", "opinion"}},
		{"part_time_volunteer", "Volunteering", "ボランティア", 3, ContextSocial, 1.0, 0.7, "Helping in the community and volunteer work", []string{"cleaning", "elderly", "events"}, []string{"experience", "opinion"}},
		{"cooking", "Cooking", "料理", 2, ContextDaily, 1.0, 0.7, "Cooking at home, recipes, helping with meals", []string{"recipes", "lunch_box", "baking"}, []string{"experience", "preference"}},
		{"books_movies", "Books and Movies", "本と映画", 2, ContextPersonal, 1.0, 0.8, "Favorite books, movies and stories", []string{"novels", "comics", "cinema"}, []string{"opinion", "favorite"}},
		{"seasons_events", "Seasonal Events", "季節の行事", 2, ContextSocial, 0.9, 0.7, "New Year, summer vacation, seasonal traditions", []string{"new_year", "summer_vacation", "traditions"}, []string{"experience", "description"}},
		{"future_dreams", "Future Dreams", "将来の夢", 3, ContextPersonal, 1.0, 0.8, "Future jobs and dreams", []string{"jobs", "studying_abroad", "goals"}, []string{"plans", "reasons"}},
		{"health", "Health", "健康", 2, ContextDaily, 0.9, 0.6, "Sleeping, eating well and exercise", []string{"sleep", "exercise", "breakfast"}, []string{"habit", "opinion"}},
	},
	eiken.GradePre2: {
		{"technology_daily", "Technology in Daily Life", "日常のテクノロジー", 3, ContextSocial, 1.1, 0.9, "Smartphones, online shopping and apps", []string{"smartphones", "online_shopping", "apps"}, []string{"pros_cons", "opinion"}},
		{"environment_local", "Local Environment", "身近な環境", 3, ContextSocial, 1.1, 0.9, "Recycling, saving energy, keeping towns clean", []string{"recycling", "plastic", "energy"}, []string{"pros_cons", "solutions"}},
		{"school_rules", "School Rules", "校則", 3, ContextDaily, 1.0, 0.8, "Uniforms, phones at school, homework", []string{"uniforms", "phones", "homework"}, []string{"agree_disagree"}},
		{"community", "Community", "地域社会", 3, ContextSocial, 1.0, 0.7, "Local events, neighbors and community centers", []string{"neighbors", "events", "libraries"}, []string{"opinion", "experience"}},
		{"food_culture", "Food Culture", "食文化", 3, ContextSocial, 1.0, 0.7, "Japanese food abroad, eating out, fast food", []string{"restaurants", "fast_food", "washoku"}, []string{"pros_cons", "preference"}},
		{"tourism", "Tourism", "観光", 3, ContextSocial, 1.0, 0.8, "Tourists visiting Japan and local sightseeing", []string{"foreign_visitors", "hotels", "guides"}, []string{"pros_cons", "opinion"}},
		{"pets_society", "Pets and Society", "ペットと社会", 3, ContextSocial, 0.9, 0.6, "Pet cafes, keeping pets in apartments", []string{"pet_cafes", "apartments", "care"}, []string{"agree_disagree"}},
		{"reading_habits", "Reading Habits", "読書習慣", 3, ContextPersonal, 0.9, 0.6, "E-books, libraries and reading time", []string{"e_books", "libraries", "reading_time"}, []string{"preference", "reasons"}},
	},
	eiken.Grade2: {
		{"work_life", "Work and Life", "仕事と生活", 4, ContextSocial, 1.1, 0.9, "Working from home, part-time jobs, work-life balance", []string{"remote_work", "part_time_jobs", "overtime"}, []string{"pros_cons", "opinion"}},
		{"energy", "Energy", "エネルギー", 4, ContextSocial, 1.0, 0.8, "Renewable energy and saving electricity", []string{"solar_power", "electricity", "cars"}, []string{"pros_cons", "solutions"}},
		{"education_online", "Online Education", "オンライン教育", 4, ContextAcademic, 1.1, 0.9, "Online classes, tablets at school, studying at home", []string{"online_classes", "tablets", "self_study"}, []string{"pros_cons", "agree_disagree"}},
		{"aging_society", "Aging Society", "高齢化社会", 4, ContextSocial, 1.0, 0.8, "Elderly people, care workers and communities", []string{"care", "volunteers", "health"}, []string{"solutions", "opinion"}},
		{"food_waste", "Food Waste", "食品ロス", 4, ContextSocial, 1.0, 0.8, "Reducing waste in shops, restaurants and homes", []string{"supermarkets", "restaurants", "leftovers"}, []string{"solutions", "pros_cons"}},
		{"transport", "Transportation", "交通", 3, ContextSocial, 0.9, 0.7, "Public transport, bicycles and self-driving cars", []string{"trains", "bicycles", "autonomous_cars"}, []string{"pros_cons"}},
		{"media", "Media and News", "メディアとニュース", 4, ContextSocial, 1.0, 0.7, "Newspapers, TV and news on the internet", []string{"newspapers", "social_media", "advertising"}, []string{"opinion", "reasons"}},
		{"disaster_prep", "Disaster Preparedness", "防災", 4, ContextSocial, 1.0, 0.8, "Preparing for earthquakes and typhoons", []string{"earthquakes", "drills", "supplies"}, []string{"solutions", "responsibility"}},
	},
	eiken.GradePre1: {
		{"ai_employment", "AI and Employment", "AIと雇用", 5, ContextAcademic, 1.2, 0.9, "Automation, artificial intelligence and the future of work", []string{"automation", "retraining", "ethics"}, []string{"agree_disagree", "pros_cons"}},
		{"climate_policy", "Climate Policy", "気候政策", 5, ContextAcademic, 1.1, 0.9, "Carbon taxes, emissions targets and international agreements", []string{"carbon_tax", "emissions", "agreements"}, []string{"agree_disagree", "solutions"}},
		{"healthcare", "Healthcare", "医療", 5, ContextSocial, 1.0, 0.8, "Medical costs, preventive care and public health", []string{"costs", "prevention", "pandemics"}, []string{"pros_cons", "responsibility"}},
		{"globalization", "Globalization", "グローバル化", 5, ContextAcademic, 1.0, 0.8, "Trade, migration and cultural exchange", []string{"trade", "migration", "culture"}, []string{"pros_cons", "opinion"}},
		{"privacy", "Privacy and Data", "プライバシーとデータ", 5, ContextSocial, 1.0, 0.8, "Personal data, surveillance cameras and online privacy", []string{"personal_data", "cameras", "social_media"}, []string{"agree_disagree"}},
		{"urbanization", "Urbanization", "都市化", 4, ContextSocial, 0.9, 0.7, "Rural depopulation and city growth", []string{"rural_areas", "housing", "infrastructure"}, []string{"solutions", "pros_cons"}},
		{"gender_equality", "Gender Equality", "男女平等", 5, ContextSocial, 1.0, 0.8, "Equal pay, leadership and parental leave", []string{"equal_pay", "leadership", "parental_leave"}, []string{"agree_disagree", "solutions"}},
		{"space_exploration", "Space Exploration", "宇宙開発", 5, ContextAcademic, 0.9, 0.6, "Funding space programs and private companies in space", []string{"funding", "private_companies", "mars"}, []string{"pros_cons", "opinion"}},
	},
	eiken.Grade1: {
		{"bioethics", "Bioethics", "生命倫理", 5, ContextAcademic, 1.1, 0.8, "Genetic engineering, cloning and medical research ethics", []string{"gene_editing", "cloning", "research"}, []string{"agree_disagree", "ethics"}},
		{"global_governance", "Global Governance", "国際統治", 5, ContextAcademic, 1.0, 0.8, "The role of international organizations and sovereignty", []string{"united_nations", "sovereignty", "sanctions"}, []string{"agree_disagree", "evaluation"}},
		{"economic_inequality", "Economic Inequality", "経済格差", 5, ContextAcademic, 1.1, 0.9, "Wealth gaps, taxation and social mobility", []string{"taxation", "basic_income", "mobility"}, []string{"solutions", "agree_disagree"}},
		{"democracy", "Democracy", "民主主義", 5, ContextAcademic, 1.0, 0.8, "Voting, misinformation and civic participation", []string{"voting", "misinformation", "participation"}, []string{"evaluation", "solutions"}},
		{"biodiversity", "Biodiversity", "生物多様性", 5, ContextAcademic, 1.0, 0.8, "Species loss, conservation and development", []string{"conservation", "deforestation", "oceans"}, []string{"solutions", "responsibility"}},
		{"tech_regulation", "Technology Regulation", "技術規制", 5, ContextAcademic, 1.1, 0.9, "Regulating big tech, AI safety and competition", []string{"big_tech", "ai_safety", "competition"}, []string{"agree_disagree", "pros_cons"}},
		{"cultural_heritage", "Cultural Heritage", "文化遺産", 4, ContextSocial, 0.9, 0.6, "Protecting traditions, museums and repatriation", []string{"museums", "traditions", "tourism"}, []string{"evaluation", "opinion"}},
		{"higher_education", "Higher Education", "高等教育", 5, ContextAcademic, 1.0, 0.8, "University costs, purpose of universities and academic freedom", []string{"tuition", "research", "employment"}, []string{"agree_disagree", "evaluation"}},
	},
}

type seedSuitability struct {
	key          store.TopicKey
	questionType eiken.QuestionType
	score        float64
}

// suitabilitySeed scores topic/format pairs that past exams use often
// (above 1.0) or rarely (below 1.0). Unlisted pairs default to 1.0.
var suitabilitySeed = []seedSuitability{
	{store.TopicKey{Grade: eiken.Grade5, Code: "school_life"}, eiken.TypeGrammarFill, 1.3},
	{store.TopicKey{Grade: eiken.Grade5, Code: "family"}, eiken.TypeGrammarFill, 1.2},
	{store.TopicKey{Grade: eiken.Grade4, Code: "weekend_plans"}, eiken.TypeLongReading, 1.3},
	{store.TopicKey{Grade: eiken.Grade4, Code: "town"}, eiken.TypeListening, 1.2},
	{store.TopicKey{Grade: eiken.Grade3, Code: "future_dreams"}, eiken.TypeEssay, 1.3},
	{store.TopicKey{Grade: eiken.Grade3, Code: "cooking"}, eiken.TypeEssay, 0.9},
	{store.TopicKey{Grade: eiken.GradePre2, Code: "school_rules"}, eiken.TypeEssay, 1.3},
	{store.TopicKey{Grade: eiken.GradePre2, Code: "technology_daily"}, eiken.TypeEmail, 1.2},
	{store.TopicKey{Grade: eiken.Grade2, Code: "education_online"}, eiken.TypeEssay, 1.3},
	{store.TopicKey{Grade: eiken.Grade2, Code: "media"}, eiken.TypeLongReading, 1.2},
	{store.TopicKey{Grade: eiken.GradePre1, Code: "ai_employment"}, eiken.TypeEssay, 1.3},
	{store.TopicKey{Grade: eiken.GradePre1, Code: "space_exploration"}, eiken.TypeOpinionSpeech, 0.9},
	{store.TopicKey{Grade: eiken.Grade1, Code: "tech_regulation"}, eiken.TypeEssay, 1.3},
	{store.TopicKey{Grade: eiken.Grade1, Code: "cultural_heritage"}, eiken.TypeOpinionSpeech, 1.2},
}

// Topics returns the built-in catalog, grades in exam order.
func Topics() []store.Topic {
	var out []store.Topic
	for _, g := range eiken.Grades {
		for _, s := range seedByGrade[g] {
			out = append(out, store.Topic{
				Code:              s.code,
				Grade:             g,
				LabelEN:           s.en,
				LabelJA:           s.ja,
				Abstractness:      s.abstractness,
				ContextType:       string(s.context),
				Scenario:          s.scenario,
				SubTopics:         s.subs,
				ArgumentAxes:      s.axes,
				Weight:            s.weight,
				OfficialFrequency: s.freq,
				Active:            true,
			})
		}
	}
	return out
}
