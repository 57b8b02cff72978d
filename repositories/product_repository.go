package repositories

import (
	"context"
	"regexp"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/punguzo/mlm_backend/models"
)

// RowUpdate is the new column values for one product, keyed by bson field name.
type RowUpdate struct {
	ID     primitive.ObjectID
	Fields bson.M
}

type MongoProductRepository struct {
	collection *mongo.Collection
}

func NewProductRepository(db *mongo.Database) *MongoProductRepository {
	return &MongoProductRepository{
		collection: db.Collection("products"),
	}
}

func (r *MongoProductRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var product models.Product
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&product); err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r *MongoProductRepository) FindByExternalIDs(ctx context.Context, externalIDs []string) (map[string]models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"externalId": bson.M{"$in": externalIDs}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var products []models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, err
	}

	byExternalID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byExternalID[p.ExternalID] = p
	}
	return byExternalID, nil
}

func productQuery(filter models.ProductFilter) bson.M {
	query := bson.M{}
	categoryFilter := bson.M{}
	if filter.Category != "" {
		categoryFilter["$eq"] = filter.Category
	}
	if len(filter.Categories) > 0 {
		categoryFilter["$in"] = filter.Categories
	}
	if len(filter.ExcludeCategories) > 0 {
		categoryFilter["$nin"] = filter.ExcludeCategories
	}
	if len(categoryFilter) > 0 {
		query["category"] = categoryFilter
	}
	if filter.Search != "" {
		query["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(filter.Search), Options: "i"}
	}
	idFilter := bson.M{}
	if !filter.ExcludeID.IsZero() {
		idFilter["$ne"] = filter.ExcludeID
	}
	if len(filter.IDs) > 0 {
		idFilter["$in"] = filter.IDs
	}
	if len(idFilter) > 0 {
		query["_id"] = idFilter
	}
	return query
}

var productSorts = map[string]bson.D{
	models.SortPopularity: {
		{Key: "popularityScore", Value: -1},
		{Key: "monthlySales", Value: -1},
		{Key: "monthlyRevenue", Value: -1},
		{Key: "_id", Value: 1},
	},
	models.SortPopularRevenue: {
		{Key: "popularityScore", Value: -1},
		{Key: "monthlyRevenue", Value: -1},
		{Key: "_id", Value: 1},
	},
}

var (
	trendingRankWeight    = mustDecimal128("0.4")
	trendingRevenueWeight = mustDecimal128("0.2")
	decimalZero           = mustDecimal128("0")
)

func mustDecimal128(s string) primitive.Decimal128 {
	d, err := primitive.ParseDecimal128(s)
	if err != nil {
		panic(err)
	}
	return d
}

func weighted(field string, weight primitive.Decimal128) bson.M {
	return bson.M{"$multiply": bson.A{bson.M{"$ifNull": bson.A{"$" + field, decimalZero}}, weight}}
}

// TrendingPipeline ranks the products matching query by trending score inside the
// database, so only the requested page leaves it.
func TrendingPipeline(query bson.M, skip, limit int64) mongo.Pipeline {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: query}},
		{{Key: "$addFields", Value: bson.M{"trendingScore": bson.M{"$add": bson.A{
			weighted("popularityScore", trendingRankWeight),
			weighted("monthlySales", trendingRankWeight),
			weighted("monthlyRevenue", trendingRevenueWeight),
		}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "trendingScore", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	if skip > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$skip", Value: skip}})
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}
	return append(pipeline, bson.D{{Key: "$project", Value: bson.M{"trendingScore": 0}}})
}

// List returns products in filter.Sort order. A zero limit returns every match.
func (r *MongoProductRepository) List(ctx context.Context, filter models.ProductFilter, skip, limit int64) ([]models.Product, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := productQuery(filter)
	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	var cursor *mongo.Cursor
	if filter.Sort == models.SortTrending {
		cursor, err = r.collection.Aggregate(ctx, TrendingPipeline(query, skip, limit))
	} else {
		order, ok := productSorts[filter.Sort]
		if !ok {
			order = productSorts[models.SortPopularity]
		}
		opts := options.Find().SetSort(order).SetSkip(skip)
		if limit > 0 {
			opts.SetLimit(limit)
		}
		cursor, err = r.collection.Find(ctx, query, opts)
	}
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *MongoProductRepository) CategoriesOf(ctx context.Context, ids []primitive.ObjectID) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	values, err := r.collection.Distinct(ctx, "category", bson.M{
		"_id":      bson.M{"$in": ids},
		"category": bson.M{"$nin": bson.A{nil, ""}},
	})
	if err != nil {
		return nil, err
	}

	categories := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			categories = append(categories, s)
		}
	}
	return categories, nil
}

func (r *MongoProductRepository) InsertMany(ctx context.Context, products []models.Product) (int, error) {
	if len(products) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	docs := make([]interface{}, len(products))
	for i := range products {
		if products[i].ID.IsZero() {
			products[i].ID = primitive.NewObjectID()
		}
		docs[i] = products[i]
	}

	result, err := r.collection.InsertMany(ctx, docs)
	if err != nil {
		return 0, translate(err)
	}
	return len(result.InsertedIDs), nil
}

// BulkUpdate applies every row in one UpdateMany. See BuildCaseUpdate.
func (r *MongoProductRepository) BulkUpdate(ctx context.Context, rows []RowUpdate) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter, pipeline := BuildCaseUpdate(rows)
	result, err := r.collection.UpdateMany(ctx, filter, pipeline)
	if err != nil {
		return 0, err
	}
	return int(result.MatchedCount), nil
}

// BuildCaseUpdate turns per-row values into a single pipeline update. Each column gets
// a $switch on _id with one branch per row that sets it; rows that do not set a column
// keep their current value.
func BuildCaseUpdate(rows []RowUpdate) (bson.M, mongo.Pipeline) {
	ids := make([]primitive.ObjectID, 0, len(rows))
	columnSet := map[string]struct{}{}
	for _, row := range rows {
		ids = append(ids, row.ID)
		for col := range row.Fields {
			columnSet[col] = struct{}{}
		}
	}

	columns := make([]string, 0, len(columnSet))
	for col := range columnSet {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	set := bson.D{}
	for _, col := range columns {
		branches := bson.A{}
		for _, row := range rows {
			value, ok := row.Fields[col]
			if !ok {
				continue
			}
			branches = append(branches, bson.M{
				"case": bson.M{"$eq": bson.A{"$_id", row.ID}},
				// $literal keeps strings such as "$5 off" from being read as field paths.
				"then": bson.M{"$literal": value},
			})
		}
		set = append(set, bson.E{Key: col, Value: bson.M{
			"$switch": bson.M{"branches": branches, "default": "$" + col},
		}})
	}

	filter := bson.M{"_id": bson.M{"$in": ids}}
	return filter, mongo.Pipeline{{{Key: "$set", Value: set}}}
}

func (r *MongoProductRepository) UpdateMetrics(ctx context.Context, id primitive.ObjectID, metrics models.ProductMetrics) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"monthlyViews":    metrics.MonthlyViews,
			"monthlySales":    metrics.MonthlySales,
			"monthlyRevenue":  metrics.MonthlyRevenue,
			"popularityScore": metrics.PopularityScore,
			"lastViewedAt":    metrics.LastViewedAt,
		},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoProductRepository) SetLastSoldAt(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"lastSoldAt": at}})
	return err
}
