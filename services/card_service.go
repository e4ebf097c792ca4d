package services

import (
	"errors"
	"math/rand"

	"flashtriv/models"

	"gorm.io/gorm"
)

// CardStore is the read side of card storage the game engine depends on.
// The engine never writes cards; deletions happening mid-game are surfaced
// as ErrCardNotFound and skipped by the session.
type CardStore interface {
	GetSetByID(setID uint) (*models.Set, error)
	GetCardByID(cardID uint) (*models.Card, error)
	CardIDsInSet(setID uint) ([]uint, error)
	RandomCardFromSet(setID uint) (*models.Card, error)
	SampleCardIDs(setID uint, n int) ([]uint, error)
}

type CardService struct {
	db *gorm.DB
}

func NewCardService(db *gorm.DB) *CardService {
	return &CardService{db: db}
}

type CreateSetRequest struct {
	Name  string              `json:"name" binding:"required"`
	Cards []CreateCardRequest `json:"cards"`
}

type CreateCardRequest struct {
	Front string `json:"front" binding:"required"`
	Back  string `json:"back" binding:"required"`
}

func (s *CardService) GetSetByID(setID uint) (*models.Set, error) {
	var set models.Set
	if err := s.db.Preload("Cards").First(&set, setID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSetNotFound
		}
		return nil, err
	}
	return &set, nil
}

func (s *CardService) GetCardByID(cardID uint) (*models.Card, error) {
	var card models.Card
	if err := s.db.First(&card, cardID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, err
	}
	return &card, nil
}

func (s *CardService) CardIDsInSet(setID uint) ([]uint, error) {
	var ids []uint
	if err := s.db.Model(&models.Card{}).Where("set_id = ?", setID).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// RandomCardFromSet draws one random card from the set. Ids whose card has
// been deleted since the listing are discarded and the draw retried.
func (s *CardService) RandomCardFromSet(setID uint) (*models.Card, error) {
	ids, err := s.CardIDsInSet(setID)
	if err != nil {
		return nil, err
	}

	for len(ids) > 0 {
		i := rand.Intn(len(ids))
		card, err := s.GetCardByID(ids[i])
		if err == nil {
			return card, nil
		}
		if !errors.Is(err, ErrCardNotFound) {
			return nil, err
		}
		ids = append(ids[:i], ids[i+1:]...)
	}
	return nil, ErrSetExhausted
}

// SampleCardIDs returns up to n distinct card ids from the set in random
// order, used to fix a solo game's question list at creation time.
func (s *CardService) SampleCardIDs(setID uint, n int) ([]uint, error) {
	ids, err := s.CardIDsInSet(setID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrSetExhausted
	}

	rand.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
	if n < len(ids) {
		ids = ids[:n]
	}
	return ids, nil
}

func (s *CardService) GetUserSets(userID uint) ([]models.Set, error) {
	var sets []models.Set
	err := s.db.Where("user_id = ?", userID).
		Preload("Cards").
		Order("created_at DESC").
		Find(&sets).Error
	return sets, err
}

func (s *CardService) CreateSet(userID uint, req *CreateSetRequest) (*models.Set, error) {
	set := models.Set{
		Name:   req.Name,
		UserID: userID,
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Create(&set).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	for _, cReq := range req.Cards {
		card := models.Card{
			SetID: set.ID,
			Front: cReq.Front,
			Back:  cReq.Back,
		}
		if err := tx.Create(&card).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return s.GetSetByID(set.ID)
}

func (s *CardService) DeleteSet(setID uint, userID uint) error {
	var set models.Set
	if err := s.db.Where("id = ? AND user_id = ?", setID, userID).First(&set).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSetNotFound
		}
		return err
	}

	if err := s.db.Where("set_id = ?", setID).Delete(&models.Card{}).Error; err != nil {
		return err
	}
	return s.db.Delete(&set).Error
}

func (s *CardService) AddCard(setID uint, userID uint, req *CreateCardRequest) (*models.Card, error) {
	var set models.Set
	if err := s.db.Where("id = ? AND user_id = ?", setID, userID).First(&set).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSetNotFound
		}
		return nil, err
	}

	card := models.Card{
		SetID: setID,
		Front: req.Front,
		Back:  req.Back,
	}
	if err := s.db.Create(&card).Error; err != nil {
		return nil, err
	}
	return &card, nil
}

func (s *CardService) DeleteCard(cardID uint, userID uint) error {
	var card models.Card
	if err := s.db.Joins("Set").Where("cards.id = ? AND \"Set\".user_id = ?", cardID, userID).First(&card).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCardNotFound
		}
		return err
	}
	return s.db.Delete(&card).Error
}
