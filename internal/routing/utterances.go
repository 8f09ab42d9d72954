package routing

// 默认路由的示例语句
// cars对应cars_data表的查询，countries对应countries_data表的查询
var (
	carUtterances = []string{
		"What are the engine specifications of this car?",
		"How much horsepower does the Vortex X1 have?",
		"Which car has the best fuel consumption?",
		"Tell me about the top speed of the Avalon S",
		"What is the acceleration of this vehicle?",
		"Compare the torque of these two cars",
		"How many seats does this car model have?",
		"What is the price of the sports car?",
	}

	countryUtterances = []string{
		"How many habitants does this country have?",
		"What's the most common animal in Italy?",
		"What is the capital of this country?",
		"Which language is spoken in Egypt?",
		"What is the surface area of France?",
		"Tell me about the national currency",
		"Which continent is this country located in?",
		"What is the population density of Japan?",
	}
)

// DefaultRoutes 返回默认的cars/countries路由集
func DefaultRoutes() []Route {
	return []Route{
		{Name: "cars", Utterances: carUtterances},
		{Name: "countries", Utterances: countryUtterances},
	}
}
