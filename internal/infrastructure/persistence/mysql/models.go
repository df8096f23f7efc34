package mysql

import (
	"time"

	"gorm.io/datatypes"

	"github.com/xiebiao/b2b-order/internal/domain/product"
)

// 设计说明：
// 1. 这里是infrastructure层的数据模型，包含GORM tag
// 2. domain层实体不依赖GORM，Repository负责两者之间的转换
// 3. 金额统一使用int64存储（货币最小单位）
// 4. 表结构以migrations/下的SQL为准，AutoMigrate只用于本地开发

// UserModel 买家
type UserModel struct {
	ID         uint      `gorm:"primaryKey"`
	ExternalID string    `gorm:"uniqueIndex;size:128;not null;comment:外部身份ID"`
	Email      string    `gorm:"size:100;comment:邮箱"`
	Name       string    `gorm:"size:100;comment:名称"`
	Role       string    `gorm:"size:16;not null;default:BUYER;comment:角色"`
	CreatedAt  time.Time `gorm:"comment:创建时间"`
	UpdatedAt  time.Time `gorm:"comment:更新时间"`
}

func (UserModel) TableName() string {
	return "users"
}

// ProductModel 商品
// 阶梯价以JSON列存储，只随商品整体读写
type ProductModel struct {
	ID                uint                `gorm:"primaryKey"`
	SKU               string              `gorm:"uniqueIndex;size:64;not null;comment:SKU"`
	Name              string              `gorm:"size:200;not null;comment:商品名称"`
	Brand             string              `gorm:"size:100;comment:品牌"`
	Inventory         int                 `gorm:"not null;default:0;comment:可售库存"`
	Status            string              `gorm:"index;size:16;not null;default:ACTIVE;comment:状态"`
	BasePrice         int64               `gorm:"not null;comment:基础单价"`
	MinOrderQuantity  int                 `gorm:"not null;default:1;comment:起订量"`
	MaxOrderQuantity  int                 `gorm:"not null;default:0;comment:限购量(0不限)"`
	LowStockThreshold int                 `gorm:"not null;default:0;comment:低库存预警线"`
	PriceTiers        []product.PriceTier `gorm:"serializer:json;type:json;comment:阶梯价"`
	CreatedAt         time.Time           `gorm:"comment:创建时间"`
	UpdatedAt         time.Time           `gorm:"comment:更新时间"`
}

func (ProductModel) TableName() string {
	return "products"
}

// OrderModel 订单
type OrderModel struct {
	ID            uint                      `gorm:"primaryKey"`
	OrderNumber   string                    `gorm:"uniqueIndex;size:32;not null;comment:订单号"`
	UserID        uint                      `gorm:"index;not null;comment:买家用户ID"`
	Status        string                    `gorm:"index;size:16;not null;comment:订单状态"`
	TotalAmount   int64                     `gorm:"not null;comment:订单总金额"`
	ShipName      string                    `gorm:"size:100;not null;comment:收货人"`
	ShipPhone     string                    `gorm:"size:32;not null;comment:联系电话"`
	ShipAddress   string                    `gorm:"size:255;not null;comment:收货地址"`
	ShipDetail    string                    `gorm:"size:255;comment:详细地址"`
	ShipZipCode   string                    `gorm:"size:16;comment:邮编"`
	PaymentMethod string                    `gorm:"size:16;not null;comment:支付方式"`
	Memo          string                    `gorm:"size:500;comment:备注"`
	Items         []OrderItemModel          `gorm:"foreignKey:OrderID"`
	History       []OrderStatusHistoryModel `gorm:"foreignKey:OrderID"`
	CreatedAt     time.Time                 `gorm:"index;comment:创建时间"`
	UpdatedAt     time.Time                 `gorm:"comment:更新时间"`
}

func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel 订单明细（价格与商品信息均为下单时快照）
type OrderItemModel struct {
	ID          uint   `gorm:"primaryKey"`
	OrderID     uint   `gorm:"index;not null;comment:订单ID"`
	ProductID   uint   `gorm:"index;not null;comment:商品ID"`
	SKU         string `gorm:"size:64;not null;comment:SKU快照"`
	ProductName string `gorm:"size:200;not null;comment:商品名称快照"`
	Brand       string `gorm:"size:100;comment:品牌快照"`
	Quantity    int    `gorm:"not null;comment:数量"`
	Price       int64  `gorm:"not null;comment:下单时单价"`
}

func (OrderItemModel) TableName() string {
	return "order_items"
}

// OrderStatusHistoryModel 订单状态记录
type OrderStatusHistoryModel struct {
	ID             uint      `gorm:"primaryKey"`
	OrderID        uint      `gorm:"index;not null;comment:订单ID"`
	FromStatus     string    `gorm:"size:16;comment:原状态"`
	ToStatus       string    `gorm:"size:16;not null;comment:新状态"`
	ActorID        string    `gorm:"size:128;not null;comment:操作人"`
	Reason         string    `gorm:"size:255;comment:原因"`
	TrackingNumber string    `gorm:"size:64;comment:物流单号"`
	CreatedAt      time.Time `gorm:"comment:创建时间"`
}

func (OrderStatusHistoryModel) TableName() string {
	return "order_status_history"
}

// AuditLogModel 审计日志
type AuditLogModel struct {
	ID         uint              `gorm:"primaryKey"`
	UserID     string            `gorm:"index;size:128;not null;comment:操作人"`
	Action     string            `gorm:"index:idx_audit_action;size:32;not null;comment:动作"`
	EntityType string            `gorm:"index:idx_audit_entity;size:16;not null;comment:对象类型"`
	EntityID   uint              `gorm:"index:idx_audit_entity;not null;comment:对象ID"`
	OldValues  datatypes.JSONMap `gorm:"comment:变更前"`
	NewValues  datatypes.JSONMap `gorm:"comment:变更后"`
	Metadata   datatypes.JSONMap `gorm:"comment:附加信息"`
	IP         string            `gorm:"size:64;comment:来源IP"`
	UserAgent  string            `gorm:"size:255;comment:User-Agent"`
	CreatedAt  time.Time         `gorm:"index;comment:创建时间"`
}

func (AuditLogModel) TableName() string {
	return "audit_logs"
}
