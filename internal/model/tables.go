package model

// Tables lists every model AutoMigrate creates, parents before children.
var Tables = []interface{}{
	&Privilege{},
	&Role{},
	&User{},
	&Vehicle{},
	&Order{},
	&Payment{},
	&GatewayLog{},
}
