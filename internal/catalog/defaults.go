package catalog

import (
	"github.com/mindfultime/mindfultime-server/internal/models"
)

// defaultAchievements is the stock achievement catalog.
var defaultAchievements = []achievementSeed{
	{
		Slug:        "first_task",
		Title:       "First Step",
		Description: "Complete your first activity",
		Icon:        "star",
		Requirement: 1,
		Type:        models.AchievementTasksCompleted,
		RewardBonus: 10,
	},
	{
		Slug:        "task_master_10",
		Title:       "Dedicated Beginner",
		Description: "Complete 10 activities",
		Icon:        "trophy",
		Requirement: 10,
		Type:        models.AchievementTasksCompleted,
		RewardBonus: 30,
	},
	{
		Slug:        "task_master_50",
		Title:       "Mindfulness Expert",
		Description: "Complete 50 activities",
		Icon:        "emoji-events",
		Requirement: 50,
		Type:        models.AchievementTasksCompleted,
		RewardBonus: 100,
	},
	{
		Slug:        "time_earner_100",
		Title:       "Time Winner",
		Description: "Earn 100 minutes",
		Icon:        "access-time",
		Requirement: 100,
		Type:        models.AchievementTimeEarned,
		RewardBonus: 20,
	},
	{
		Slug:        "time_earner_500",
		Title:       "Temporal Master",
		Description: "Earn 500 minutes",
		Icon:        "schedule",
		Requirement: 500,
		Type:        models.AchievementTimeEarned,
		RewardBonus: 50,
	},
	{
		Slug:        "streak_7",
		Title:       "Perfect Week",
		Description: "Keep a 7-day streak",
		Icon:        "local-fire-department",
		Requirement: 7,
		Type:        models.AchievementStreak,
		RewardBonus: 50,
	},
	{
		Slug:        "streak_30",
		Title:       "Month of Discipline",
		Description: "Keep a 30-day streak",
		Icon:        "whatshot",
		Requirement: 30,
		Type:        models.AchievementStreak,
		RewardBonus: 200,
	},
	{
		Slug:        "outdoor_master",
		Title:       "Nature Lover",
		Description: "Complete 20 outdoor activities",
		Icon:        "park",
		Requirement: 20,
		Type:        models.AchievementCategoryMaster,
		Category:    models.TaskCategoryOutdoor,
		RewardBonus: 40,
	},
	{
		Slug:        "meditation_master",
		Title:       "Zen Master",
		Description: "Complete 20 meditation sessions",
		Icon:        "self-improvement",
		Requirement: 20,
		Type:        models.AchievementCategoryMaster,
		Category:    models.TaskCategoryMeditation,
		RewardBonus: 40,
	},
}

// defaultTasks is the stock task catalog.
var defaultTasks = []taskSeed{
	// Outdoor
	{Slug: "outdoor_walk", Title: "Go for a Walk", Description: "Take a 30-minute walk outside", Category: models.TaskCategoryOutdoor, TimeReward: 30, Icon: "walk", RequiresPhoto: true},
	{Slug: "outdoor_run", Title: "Morning Run", Description: "Go for a refreshing morning run", Category: models.TaskCategoryOutdoor, TimeReward: 45, Icon: "run", RequiresPhoto: true},
	{Slug: "outdoor_bike", Title: "Bike Ride", Description: "Take a bike ride around your neighborhood", Category: models.TaskCategoryOutdoor, TimeReward: 60, Icon: "bike", RequiresPhoto: true},
	{Slug: "outdoor_nature", Title: "Visit Nature", Description: "Spend time in a park or natural area", Category: models.TaskCategoryOutdoor, TimeReward: 45, Icon: "tree", RequiresPhoto: true},

	// Reading
	{Slug: "reading_book", Title: "Read a Book", Description: "Read for 30 minutes", Category: models.TaskCategoryReading, TimeReward: 30, Icon: "book", RequiresPhoto: true},
	{Slug: "reading_article", Title: "Read Articles", Description: "Read educational articles or news", Category: models.TaskCategoryReading, TimeReward: 20, Icon: "newspaper", RequiresPhoto: false},

	// Exercise
	{Slug: "exercise_yoga", Title: "Yoga Session", Description: "Practice yoga for 30 minutes", Category: models.TaskCategoryExercise, TimeReward: 40, Icon: "yoga", RequiresPhoto: true},
	{Slug: "exercise_gym", Title: "Gym Workout", Description: "Complete a workout at the gym", Category: models.TaskCategoryExercise, TimeReward: 60, Icon: "dumbbell", RequiresPhoto: true},
	{Slug: "exercise_home", Title: "Home Exercise", Description: "Do a home workout routine", Category: models.TaskCategoryExercise, TimeReward: 30, Icon: "home-fitness", RequiresPhoto: false},

	// Meditation
	{Slug: "meditation_short", Title: "Quick Meditation", Description: "10-minute meditation session", Category: models.TaskCategoryMeditation, TimeReward: 15, Icon: "meditate", RequiresPhoto: false},
	{Slug: "meditation_long", Title: "Deep Meditation", Description: "30-minute meditation practice", Category: models.TaskCategoryMeditation, TimeReward: 40, Icon: "lotus", RequiresPhoto: false},
	{Slug: "meditation_breathing", Title: "Breathing Exercise", Description: "Practice deep breathing exercises", Category: models.TaskCategoryMeditation, TimeReward: 10, Icon: "breath", RequiresPhoto: false},

	// Creative
	{Slug: "creative_draw", Title: "Draw or Paint", Description: "Create some art", Category: models.TaskCategoryCreative, TimeReward: 45, Icon: "palette", RequiresPhoto: true},
	{Slug: "creative_music", Title: "Play Music", Description: "Practice an instrument or sing", Category: models.TaskCategoryCreative, TimeReward: 30, Icon: "music", RequiresPhoto: false},
	{Slug: "creative_write", Title: "Creative Writing", Description: "Write a story, poem, or journal entry", Category: models.TaskCategoryCreative, TimeReward: 30, Icon: "pen", RequiresPhoto: false},
	{Slug: "creative_craft", Title: "Arts and Crafts", Description: "Work on a craft project", Category: models.TaskCategoryCreative, TimeReward: 40, Icon: "scissors", RequiresPhoto: true},

	// Social
	{Slug: "social_call", Title: "Call a Friend", Description: "Have a meaningful conversation", Category: models.TaskCategorySocial, TimeReward: 25, Icon: "phone", RequiresPhoto: false},
	{Slug: "social_meetup", Title: "Meet in Person", Description: "Spend time with friends or family", Category: models.TaskCategorySocial, TimeReward: 60, Icon: "people", RequiresPhoto: true},
	{Slug: "social_volunteer", Title: "Volunteer", Description: "Help others in your community", Category: models.TaskCategorySocial, TimeReward: 90, Icon: "handshake", RequiresPhoto: true},
}
