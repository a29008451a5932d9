package mock

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	applog "aromastock/internal/log"
	"aromastock/models"
)

// New returns an in-memory sqlite database seeded with a representative
// perfume workshop: a material catalog, a wizard recipe, a manual recipe
// and one layered recipe nesting the manual one.
func New(ctx context.Context) (*gorm.DB, error) {
	applog.Debug(ctx, "initialising mock database")

	db, err := gorm.Open(sqlite.Open("file:aromastock-mock?mode=memory&cache=shared"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		PrepareStmt:                              true,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Material{},
		&models.Recipe{},
		&models.RecipeIngredient{},
		&models.RecipeWizard{},
		&models.WizardBibitMaterial{},
		&models.ProductionBatch{},
		&models.ProductionIngredient{},
		&models.ActivityLog{},
	); err != nil {
		return nil, err
	}

	if err := seed(ctx, db); err != nil {
		return nil, err
	}

	applog.Debug(ctx, "mock database ready")
	return db, nil
}

func seed(ctx context.Context, db *gorm.DB) error {
	applog.Debug(ctx, "seeding mock database")

	password, err := bcrypt.GenerateFromPassword([]byte("workshop"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := &models.User{
		Name:         "Sari Atelier",
		Email:        "sari@aromastock.app",
		PasswordHash: string(password),
	}
	if err := db.WithContext(ctx).Create(user).Error; err != nil {
		return err
	}

	melati := models.Material{
		Name:       "Bibit Melati",
		Unit:       "ml",
		Quantity:   500,
		Price:      250000,
		PackAmount: 100,
		MinStock:   50,
		OwnerID:    user.ID,
	}
	mawar := models.Material{
		Name:       "Bibit Mawar",
		Unit:       "ml",
		Quantity:   320,
		Price:      210000,
		PackAmount: 100,
		MinStock:   50,
		OwnerID:    user.ID,
	}
	fixative := models.Material{
		Name:       "Fixative Base",
		Unit:       "ml",
		Quantity:   150,
		Price:      90000,
		PackAmount: 250,
		MinStock:   25,
		OwnerID:    user.ID,
	}
	alkohol := models.Material{
		Name:       "Alkohol 96%",
		Unit:       "ml",
		Quantity:   4000,
		Price:      50000,
		PackAmount: 1000,
		MinStock:   500,
		OwnerID:    user.ID,
	}

	materials := []*models.Material{&melati, &mawar, &fixative, &alkohol}
	for _, material := range materials {
		if err := db.WithContext(ctx).Create(material).Error; err != nil {
			return err
		}
	}

	wizarded := models.Recipe{
		Name:           "Melati Royale",
		Method:         models.MethodWizard,
		OutputQuantity: models.DefaultOutputQuantity,
		Unit:           "ml",
		OwnerID:        user.ID,
	}
	if err := db.WithContext(ctx).Create(&wizarded).Error; err != nil {
		return err
	}
	wizard := models.RecipeWizard{
		RecipeID:        wizarded.ID,
		BibitPercent:    50,
		FixativePercent: 4,
		AlcoholPercent:  46,
		FixativeID:      &fixative.ID,
		AlcoholID:       &alkohol.ID,
		BibitMaterials: []models.WizardBibitMaterial{
			{MaterialID: melati.ID, PercentShare: 70},
			{MaterialID: mawar.ID, PercentShare: 30},
		},
	}
	if err := db.WithContext(ctx).Create(&wizard).Error; err != nil {
		return err
	}

	manual := models.Recipe{
		Name:           "Mawar Classic",
		Method:         models.MethodManual,
		OutputQuantity: models.DefaultOutputQuantity,
		Unit:           "ml",
		OwnerID:        user.ID,
	}
	if err := db.WithContext(ctx).Create(&manual).Error; err != nil {
		return err
	}

	layered := models.Recipe{
		Name:           "Layered Garden",
		Method:         models.MethodManual,
		OutputQuantity: models.DefaultOutputQuantity,
		Unit:           "ml",
		OwnerID:        user.ID,
	}
	if err := db.WithContext(ctx).Create(&layered).Error; err != nil {
		return err
	}

	ingredients := []models.RecipeIngredient{
		{RecipeID: wizarded.ID, MaterialID: &melati.ID, Quantity: 35, Category: models.CategoryBibit},
		{RecipeID: wizarded.ID, MaterialID: &mawar.ID, Quantity: 15, Category: models.CategoryBibit},
		{RecipeID: wizarded.ID, MaterialID: &fixative.ID, Quantity: 4, Category: models.CategoryFixative},
		{RecipeID: wizarded.ID, MaterialID: &alkohol.ID, Quantity: 46, Category: models.CategorySolvent},

		{RecipeID: manual.ID, MaterialID: &mawar.ID, Quantity: 40, Category: models.CategoryBibit},
		{RecipeID: manual.ID, MaterialID: &alkohol.ID, Quantity: 60, Category: models.CategorySolvent},

		{RecipeID: layered.ID, SubRecipeID: &manual.ID, Quantity: 30, Category: models.CategoryGeneral},
		{RecipeID: layered.ID, MaterialID: &alkohol.ID, Quantity: 70, Category: models.CategorySolvent},
	}

	for _, ingredient := range ingredients {
		ingredientCopy := ingredient
		if err := db.WithContext(ctx).Create(&ingredientCopy).Error; err != nil {
			return err
		}
	}

	applog.Debug(ctx, "mock database seeded")
	return nil
}
