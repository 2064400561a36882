package scene

// Category - метка обстановки, по которой выбирается стоковая иллюстрация.
type Category string

const (
	Space      Category = "space"
	Forest     Category = "forest"
	Ocean      Category = "ocean"
	Castle     Category = "castle"
	City       Category = "city"
	Home       Category = "home"
	School     Category = "school"
	Park       Category = "park"
	Mountain   Category = "mountain"
	Desert     Category = "desert"
	Sky        Category = "sky"
	Night      Category = "night"
	Magic      Category = "magic"
	Adventure  Category = "adventure"
	Friendship Category = "friendship"
)

// DefaultCategory возвращается, когда ни одно ключевое слово не найдено.
const DefaultCategory = Adventure

// Scene связывает категорию с ключевыми словами и кандидатами-иллюстрациями.
type Scene struct {
	Category Category
	Keywords []string
	Images   []string
}

const unsplash = "https://images.unsplash.com/"

// Порядок важен: при равенстве очков побеждает категория, объявленная раньше.
var defaultScenes = []Scene{
	{
		Category: Space,
		Keywords: []string{"太空", "星球", "月球", "火箭", "宇航", "星星", "外星", "飞船", "宇宙",
			"space", "planet", "moon", "rocket", "astronaut", "alien", "galaxy"},
		Images: []string{
			unsplash + "photo-1446776653964-20c1d3a81b06?w=800&h=600&fit=crop",
			unsplash + "photo-1462331940025-496dfbfc7564?w=800&h=600&fit=crop",
			unsplash + "photo-1419242902214-272b3f66ee7a?w=800&h=600&fit=crop",
		},
	},
	{
		Category: Forest,
		Keywords: []string{"森林", "树木", "丛林", "树林", "大树", "小径", "野外",
			"forest", "jungle", "woods", "trees", "trail"},
		Images: []string{
			unsplash + "photo-1441974231531-c6227db76b6e?w=800&h=600&fit=crop",
			unsplash + "photo-1448375240586-882707db888b?w=800&h=600&fit=crop",
			unsplash + "photo-1511497584788-876760111969?w=800&h=600&fit=crop",
		},
	},
	{
		Category: Ocean,
		Keywords: []string{"海洋", "大海", "海边", "沙滩", "海浪", "海底", "鱼", "珊瑚",
			"ocean", "beach", "wave", "underwater", "fish", "coral"},
		Images: []string{
			unsplash + "photo-1505142468610-359e7d316be0?w=800&h=600&fit=crop",
			unsplash + "photo-1559827260-dc66d52bef19?w=800&h=600&fit=crop",
			unsplash + "photo-1439405326854-014607f694d7?w=800&h=600&fit=crop",
		},
	},
	{
		Category: Castle,
		Keywords: []string{"城堡", "宫殿", "王国", "塔楼", "皇宫",
			"castle", "palace", "kingdom", "tower"},
		Images: []string{
			unsplash + "photo-1518709268805-4e9042af9f23?w=800&h=600&fit=crop",
			unsplash + "photo-1564501049412-61c2a3083791?w=800&h=600&fit=crop",
		},
	},
	{
		Category: City,
		Keywords: []string{"城市", "街道", "建筑", "商店", "马路", "高楼",
			"city", "street", "building", "shop", "road"},
		Images: []string{
			unsplash + "photo-1480714378408-67cf0d13bc1b?w=800&h=600&fit=crop",
			unsplash + "photo-1449824913935-59a10b8d2000?w=800&h=600&fit=crop",
		},
	},
	{
		Category: Home,
		Keywords: []string{"家", "房间", "卧室", "客厅", "厨房", "房子",
			"home", "house", "bedroom", "kitchen"},
		Images: []string{
			unsplash + "photo-1484154218962-a197022b5858?w=800&h=600&fit=crop",
			unsplash + "photo-1556912173-46c336c7fd55?w=800&h=600&fit=crop",
		},
	},
	{
		Category: School,
		Keywords: []string{"学校", "教室", "操场", "课堂",
			"school", "classroom", "teacher", "lesson"},
		Images: []string{
			unsplash + "photo-1509062522246-3755977927d7?w=800&h=600&fit=crop",
			unsplash + "photo-1503676260728-1c00da094a0b?w=800&h=600&fit=crop",
		},
	},
	{
		Category: Park,
		Keywords: []string{"公园", "花园", "草地", "游乐场",
			"park", "garden", "meadow", "playground"},
		Images: []string{
			unsplash + "photo-1519331379826-f10be5486c6f?w=800&h=600&fit=crop",
			unsplash + "photo-1558618666-fcd25c85cd64?w=800&h=600&fit=crop",
		},
	},
	{
		Category: Mountain,
		Keywords: []string{"山", "山峰", "高山", "山顶", "登山",
			"mountain", "peak", "hill", "climb"},
		Images: []string{
			unsplash + "photo-1506905925346-21bda4d32df4?w=800&h=600&fit=crop",
			unsplash + "photo-1464822759023-fed622ff2c3b?w=800&h=600&fit=crop",
		},
	},
	{
		Category: Desert,
		Keywords: []string{"沙漠", "沙丘", "骆驼",
			"desert", "dune", "camel"},
		Images: []string{
			unsplash + "photo-1509316785289-025f5b846b35?w=800&h=600&fit=crop",
			unsplash + "photo-1547036967-23d11aacaee0?w=800&h=600&fit=crop",
		},
	},
	{
		Category: Sky,
		Keywords: []string{"天空", "云", "彩虹", "飞翔", "飞行",
			"sky", "cloud", "rainbow", "fly"},
		Images: []string{
			unsplash + "photo-1534088568595-a066f410bcda?w=800&h=600&fit=crop",
			unsplash + "photo-1517483000871-1dbf64a6e1c6?w=800&h=600&fit=crop",
		},
	},
	{
		Category: Night,
		Keywords: []string{"夜晚", "月亮", "星空", "夜空", "睡觉", "梦",
			"night", "starry", "sleep", "dream", "bedtime"},
		Images: []string{
			unsplash + "photo-1519681393784-d120267933ba?w=800&h=600&fit=crop",
			unsplash + "photo-1444080748397-f442aa95c3e5?w=800&h=600&fit=crop",
		},
	},
	{
		Category: Magic,
		Keywords: []string{"魔法", "魔术", "神奇", "魔力", "变化", "奇迹",
			"magic", "wizard", "spell", "miracle", "enchant"},
		Images: []string{
			unsplash + "photo-1518709268805-4e9042af9f23?w=800&h=600&fit=crop",
			unsplash + "photo-1470071459604-3b5ec3a7fe05?w=800&h=600&fit=crop",
		},
	},
	{
		Category: Adventure,
		Keywords: []string{"冒险", "探险", "寻找", "旅行", "发现", "探索",
			"adventure", "explore", "journey", "treasure", "discover"},
		Images: []string{
			unsplash + "photo-1476514525535-07fb3b4ae5f1?w=800&h=600&fit=crop",
			unsplash + "photo-1445964047600-cdbdb873673d?w=800&h=600&fit=crop",
		},
	},
	{
		Category: Friendship,
		Keywords: []string{"朋友", "友谊", "伙伴", "一起", "帮助", "分享",
			"friend", "together", "help", "share"},
		Images: []string{
			unsplash + "photo-1529156069898-49953e39b3ac?w=800&h=600&fit=crop",
			unsplash + "photo-1511895426328-dc8714191300?w=800&h=600&fit=crop",
		},
	},
}
